package ircmsg

import (
	"bytes"
	"testing"
)

func TestFramerRestartAcrossChunks(t *testing.T) {
	var f Framer

	first := f.Feed([]byte(":a!u@h PRIVMSG #c :hel"))
	if len(first) != 0 {
		t.Fatalf("expected no complete lines yet, got %q", first)
	}

	second := f.Feed([]byte("lo\r\n:b PING x\r\n"))
	want := [][]byte{
		[]byte(":a!u@h PRIVMSG #c :hello"),
		[]byte(":b PING x"),
	}
	if len(second) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(second), len(want), second)
	}
	for i := range want {
		if !bytes.Equal(second[i], want[i]) {
			t.Errorf("line %d = %q, want %q", i, second[i], want[i])
		}
	}
}

func TestFramerArbitrarySplitMatchesReference(t *testing.T) {
	whole := []byte("CMD1 a b\r\nCMD2 c\nCMD3\r\n\r\n\r\nCMD4 d e :trailing text\r\n")
	want := SplitOnTerminators(whole)

	for split := 0; split <= len(whole); split++ {
		var f Framer
		got := f.Feed(whole[:split])
		got = append(got, f.Feed(whole[split:])...)
		if len(got) != len(want) {
			t.Fatalf("split at %d: got %d lines, want %d", split, len(got), len(want))
		}
		for i := range want {
			if !bytes.Equal(got[i], want[i]) {
				t.Errorf("split at %d, line %d = %q, want %q", split, i, got[i], want[i])
			}
		}
	}
}

func TestFramerDropsEmptyLines(t *testing.T) {
	var f Framer
	lines := f.Feed([]byte("\r\n\r\nCMD\r\n\n\n"))
	if len(lines) != 1 || string(lines[0]) != "CMD" {
		t.Fatalf("got %q, want single CMD line", lines)
	}
}

func TestFramerResetClearsTail(t *testing.T) {
	var f Framer
	f.Feed([]byte("partial"))
	if len(f.Pending()) == 0 {
		t.Fatalf("expected pending tail")
	}
	f.Reset()
	if len(f.Pending()) != 0 {
		t.Fatalf("Reset did not clear tail")
	}
}
