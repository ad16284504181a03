// Package snapshot implements the upgrade snapshot persisted-state
// layout of spec §6: an ordered sequence of typed records describing
// every server and channel, written so a restarted engine can resume
// without dropping connections' logical state. Unknown record types are
// skipped rather than rejected, the forward-compatibility rule spec §6
// names explicitly.
//
// WeeChat's own upgrade file is a length-prefixed binary record stream
// for exactly this purpose; no retrieval-pack example ships a
// general-purpose record-oriented persistence library (the pack's
// database layers — gorm, pgx, go-sqlite3 — model relational storage,
// not a one-shot ordered resume dump), so the envelope is built directly
// on stdlib encoding/binary (length prefixes) and encoding/gob (payload
// encoding of the typed Go structs below), matching the "typed record,
// skip unknown" contract without pulling in an ORM or wire-protocol
// library that has no other home in this module.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"time"
)

// RecordType tags each record in the stream so a reader can decode known
// kinds and skip unknown ones.
type RecordType byte

const (
	RecordServer  RecordType = 1
	RecordChannel RecordType = 2
)

// ISupportField is one KEY=VALUE ISUPPORT token, preserved verbatim so a
// resumed server doesn't need to wait for a fresh 005 burst to know its
// own casemapping/prefix/chanmodes.
type ISupportField struct {
	Key   string
	Value string
}

// Server is the per-server tuple of spec §6.
type Server struct {
	Name                string
	Status              string
	CurrentNick         string
	CurrentNickModes    string
	Addresses           []string
	CapabilitiesEnabled []string
	ISupport            []ISupportField
	Channels            []string // names only; each has its own Channel record
	OutQueueRemnants    []QueuedLine
}

// QueuedLine is one surviving out-queue entry, mirroring
// outqueue.Line without importing package outqueue (snapshot must stay
// decodable independent of runtime queue internals).
type QueuedLine struct {
	Bytes []byte
	Tags  []string
}

// ModelistEntry is one ban/except/invite/quiet mask.
type ModelistEntry struct {
	Letter    byte
	Mask      string
	Setter    string
	Timestamp time.Time
}

// NickEntry is one channel member.
type NickEntry struct {
	Name     string
	Host     string
	Account  string
	Prefixes string
}

// Channel is the per-channel tuple of spec §6.
type Channel struct {
	Server      string
	Name        string
	Type        int
	Topic       string
	TopicSetter string
	TopicTime   time.Time
	Modes       string
	Limit       int
	Key         string
	Nicks       []NickEntry
	Modelists   []ModelistEntry
}

// Writer appends length-prefixed, typed records to an underlying stream.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w for snapshot writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (sw *Writer) writeRecord(typ RecordType, v any) error {
	var pw bytes.Buffer
	if err := gob.NewEncoder(&pw).Encode(v); err != nil {
		return fmt.Errorf("snapshot: encode record type %d: %w", typ, err)
	}
	buf := pw.Bytes()

	if err := sw.w.WriteByte(byte(typ)); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(buf)))
	if _, err := sw.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := sw.w.Write(buf)
	return err
}

// WriteServer appends a Server record.
func (sw *Writer) WriteServer(s Server) error { return sw.writeRecord(RecordServer, s) }

// WriteChannel appends a Channel record.
func (sw *Writer) WriteChannel(c Channel) error { return sw.writeRecord(RecordChannel, c) }

// Flush flushes any buffered output to the underlying writer.
func (sw *Writer) Flush() error { return sw.w.Flush() }

// Reader reads records back in the order Writer wrote them.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for snapshot reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next reads the next record. On a known type it decodes into a Server
// or Channel value (returned as typ plus an any holding the concrete
// type); on an unknown type it discards the payload and returns the raw
// bytes unparsed, letting the caller skip forward-compatibly. io.EOF
// signals a clean end of stream.
func (sr *Reader) Next() (RecordType, any, error) {
	typByte, err := sr.r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	typ := RecordType(typByte)

	var lenBuf [4]byte
	if _, err := io.ReadFull(sr.r, lenBuf[:]); err != nil {
		return 0, nil, fmt.Errorf("snapshot: truncated record length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(sr.r, payload); err != nil {
		return 0, nil, fmt.Errorf("snapshot: truncated record payload: %w", err)
	}

	switch typ {
	case RecordServer:
		var s Server
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&s); err != nil {
			return 0, nil, fmt.Errorf("snapshot: decode server record: %w", err)
		}
		return typ, s, nil
	case RecordChannel:
		var c Channel
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&c); err != nil {
			return 0, nil, fmt.Errorf("snapshot: decode channel record: %w", err)
		}
		return typ, c, nil
	default:
		// Unknown record type: forward-compatible skip per spec §6.
		return typ, payload, nil
	}
}
