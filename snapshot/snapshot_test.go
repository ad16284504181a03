package snapshot

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestWriteThenReadRoundTripsServerAndChannel(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	s := Server{
		Name:        "libera",
		Status:      "registered",
		CurrentNick: "alice",
		Addresses:   []string{"irc.libera.chat:6697"},
		ISupport:    []ISupportField{{Key: "CASEMAPPING", Value: "rfc1459"}},
		Channels:    []string{"#weechat"},
	}
	c := Channel{
		Server: "libera",
		Name:   "#weechat",
		Topic:  "hello",
		Nicks:  []NickEntry{{Name: "bob", Prefixes: "@"}},
	}
	if err := w.WriteServer(s); err != nil {
		t.Fatalf("WriteServer: %v", err)
	}
	if err := w.WriteChannel(c); err != nil {
		t.Fatalf("WriteChannel: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewReader(&buf)
	typ, v, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if typ != RecordServer {
		t.Fatalf("typ = %v, want RecordServer", typ)
	}
	got := v.(Server)
	if got.Name != "libera" || got.CurrentNick != "alice" {
		t.Errorf("server = %+v", got)
	}

	typ, v, err = r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if typ != RecordChannel {
		t.Fatalf("typ = %v, want RecordChannel", typ)
	}
	gotC := v.(Channel)
	if gotC.Topic != "hello" || len(gotC.Nicks) != 1 {
		t.Errorf("channel = %+v", gotC)
	}

	if _, _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestUnknownRecordTypeIsSkippedNotFatal(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.writeRecord(RecordType(99), Server{Name: "future"}); err != nil {
		t.Fatalf("writeRecord: %v", err)
	}
	if err := w.WriteServer(Server{Name: "libera"}); err != nil {
		t.Fatalf("WriteServer: %v", err)
	}
	w.Flush()

	r := NewReader(&buf)
	typ, payload, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if typ != RecordType(99) {
		t.Fatalf("typ = %v, want 99", typ)
	}
	if _, ok := payload.([]byte); !ok {
		t.Errorf("expected raw payload bytes for an unknown record type, got %T", payload)
	}

	typ, v, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if typ != RecordServer || v.(Server).Name != "libera" {
		t.Errorf("expected to resume reading known records after skipping unknown one, got %v %v", typ, v)
	}
}

func TestTopicTimeSurvivesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := w.WriteChannel(Channel{Name: "#a", TopicTime: now}); err != nil {
		t.Fatalf("WriteChannel: %v", err)
	}
	w.Flush()

	r := NewReader(&buf)
	_, v, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !v.(Channel).TopicTime.Equal(now) {
		t.Errorf("TopicTime = %v, want %v", v.(Channel).TopicTime, now)
	}
}
