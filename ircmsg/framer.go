package ircmsg

import "golang.org/x/text/encoding"

// MaxFrameBytes is the largest frame (including any tag section) the
// framer will buffer before treating the connection as protocol-broken.
const MaxFrameBytes = 8192

// Framer reassembles CR/LF-delimited frames out of arbitrary byte chunks
// read off a TCP stream. CR and LF are both accepted as terminators; a
// lone CR and a later LF are never merged into a single terminator.
//
// A Framer is not safe for concurrent use; the engine owns exactly one per
// server connection and only the main loop touches it, per spec §5.
type Framer struct {
	tail []byte // the unterminated_message carried across Feed calls
	dec  *encoding.Decoder
}

// WithEncoding configures the Framer to transcode each complete line from
// enc to UTF-8 before returning it, for servers that advertise a legacy
// charset instead of speaking UTF-8 directly. Off by default: a zero-value
// Framer does no transcoding, matching the common case.
func (f *Framer) WithEncoding(enc encoding.Encoding) *Framer {
	f.dec = enc.NewDecoder()
	return f
}

// Feed splits chunk on CR/LF, returning the complete lines found (empty
// lines are dropped) and retaining any unterminated trailing segment to be
// prepended to the next call's input.
//
// For any sequence of inbound bytes split arbitrarily across multiple Feed
// calls, the concatenation of all returned lines equals splitting the full
// concatenated input on CR/LF and dropping empties — regardless of how the
// chunk boundaries fall.
func (f *Framer) Feed(chunk []byte) [][]byte {
	data := chunk
	if len(f.tail) > 0 {
		data = append(append([]byte(nil), f.tail...), chunk...)
		f.tail = nil
	}

	var lines [][]byte
	start := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\r', '\n':
			if line := data[start:i]; len(line) > 0 {
				lines = append(lines, f.transcode(line))
			}
			start = i + 1
		}
	}

	if start < len(data) {
		f.tail = append([]byte(nil), data[start:]...)
	}
	return lines
}

// transcode decodes line from the configured legacy charset to UTF-8. A
// malformed byte sequence is passed through unchanged rather than dropped:
// a display-only mis-decode is never a reason to lose a line.
func (f *Framer) transcode(line []byte) []byte {
	if f.dec == nil {
		return line
	}
	out, err := f.dec.Bytes(line)
	if err != nil {
		return line
	}
	return out
}

// Pending returns the current unterminated tail, exposed for diagnostics
// and for the upgrade snapshot's raw-buffer field.
func (f *Framer) Pending() []byte { return f.tail }

// Reset clears the unterminated tail. Called on disconnect per spec §5's
// "clears unterminated_message" cancellation contract.
func (f *Framer) Reset() { f.tail = nil }

// Overflowed reports whether the framer is holding more unterminated bytes
// than MaxFrameBytes without having seen a terminator, which the caller
// should treat as a protocol error and disconnect rather than keep buffering
// indefinitely.
func (f *Framer) Overflowed() bool {
	return len(f.tail) > MaxFrameBytes
}

// SplitOnTerminators is a pure helper used by tests to compute the
// reference splitting of a fully-buffered byte stream, for checking the
// Framer's incremental behavior against the non-incremental definition.
func SplitOnTerminators(all []byte) [][]byte {
	var f Framer
	// an unterminated tail in a fully-buffered stream was never a complete
	// line, matching "empty lines are discarded": it is simply not returned.
	return f.Feed(all)
}
