package ircmsg

import (
	"errors"
	"testing"
)

func TestParseBasic(t *testing.T) {
	m, err := Parse([]byte(":nick!user@host PRIVMSG #chan :hello there"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Source.Nick != "nick" || m.Source.User != "user" || m.Source.Host != "host" {
		t.Errorf("bad prefix: %#v", m.Source)
	}
	if m.Command != "PRIVMSG" {
		t.Errorf("command = %q", m.Command)
	}
	if m.Params.Get(1) != "#chan" || m.Params.Get(2) != "hello there" {
		t.Errorf("params = %#v", m.Params)
	}
}

func TestParseTags(t *testing.T) {
	m, err := Parse([]byte("@time=2021-01-01T00:00:00.000Z;msgid=abc123 :nick!u@h PRIVMSG #c :hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Tags.Get("msgid") != "abc123" {
		t.Errorf("tags = %#v", m.Tags)
	}
}

func TestParseTagEscapes(t *testing.T) {
	m, err := Parse([]byte(`@k=a\:b\sc\\d\re\nf PING x`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a;b c\\d\re\nf"
	if got := m.Tags.Get("k"); got != want {
		t.Errorf("unescaped tag = %q, want %q", got, want)
	}
}

func TestParseNoCommandOnBlankFrame(t *testing.T) {
	if _, err := Parse([]byte("   ")); !errors.Is(err, ErrNoCommand) {
		t.Errorf("err = %v, want ErrNoCommand", err)
	}
}

func TestParseNoCommandAfterPrefixOnly(t *testing.T) {
	if _, err := Parse([]byte(":nick")); !errors.Is(err, ErrNoCommand) {
		t.Errorf("err = %v, want ErrNoCommand", err)
	}
}

func TestParseMissingTrailingIsEmptyNotError(t *testing.T) {
	m, err := Parse([]byte("TOPIC #chan :"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Params.Get(2) != "" {
		t.Errorf("trailing = %q, want empty", m.Params.Get(2))
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m := NewMessage("PRIVMSG", "#chan", "hello world")
	b, err := m.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := new(Message)
	if err := got.UnmarshalText(b[:len(b)-2]); err != nil { // strip \r\n
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Command != m.Command || got.Params.Get(1) != "#chan" || got.Params.Get(2) != "hello world" {
		t.Errorf("round trip mismatch: %#v", got)
	}
}

func TestTagValueRoundTripsEveryEscapeClass(t *testing.T) {
	raw := "a;b c\\d\re\nf"
	m := NewMessage("PRIVMSG", "#c", "hi")
	m.Tags.Set("x", raw)

	b, err := m.MarshalText()
	if err != nil && !ErrTruncated(err) {
		t.Fatalf("marshal: %v", err)
	}

	got := new(Message)
	if err := got.UnmarshalText(b[:len(b)-2]); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Tags.Get("x") != raw {
		t.Errorf("tag round trip = %q, want %q", got.Tags.Get("x"), raw)
	}
}

func TestPrefixString(t *testing.T) {
	cases := []struct {
		p    Prefix
		want string
	}{
		{Prefix{}, ""},
		{Prefix{Host: "irc.example.org"}, "irc.example.org"},
		{Prefix{Nick: "bob"}, "bob"},
		{Prefix{Nick: "bob", User: "u", Host: "h"}, "bob!u@h"},
	}
	for _, c := range cases {
		if got := c.p.String(); got != c.want {
			t.Errorf("Prefix(%#v).String() = %q, want %q", c.p, got, c.want)
		}
	}
}

func TestParamsGetOutOfRange(t *testing.T) {
	p := Params{"a", "b"}
	if p.Get(0) != "" || p.Get(3) != "" || p.Get(-1) != "" {
		t.Errorf("Get out of range should return empty string")
	}
}
