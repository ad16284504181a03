package store

import (
	"testing"
	"time"

	"github.com/weechat/ircengine/casefold"
)

func TestJoinIsNoOpWhenAlreadyJoined(t *testing.T) {
	ch := NewChannel("#go", TypeChannel, casefold.RFC1459)
	ch.AddNick(&Nick{Name: "alice"})
	ch.AddNick(&Nick{Name: "ALICE"}) // same folded identity

	if len(ch.Nicks()) != 1 {
		t.Fatalf("expected 1 nick after duplicate-cased join, got %d: %v", len(ch.Nicks()), ch.Nicks())
	}
}

func TestCasemappingAwareLookup(t *testing.T) {
	s := NewStore(casefold.RFC1459)
	ch := s.GetOrCreate("#Go", TypeChannel)
	got, ok := s.Get("#GO")
	if !ok || got != ch {
		t.Fatalf("expected casemapped lookup to find #Go, ok=%v got=%v", ok, got)
	}
}

func TestAutojoinReconstruction(t *testing.T) {
	// Scenario from spec §8: joined channels #a (no key), #b (key kb), #c
	// (key kc), joined in that order; autojoin groups keyed first (in join
	// order), then keyless, and yields "#b,#c,#a kb,kc".
	s := NewStore(casefold.ASCII)

	a := s.GetOrCreate("#a", TypeChannel)
	a.JoinState = StateJoined

	b := s.GetOrCreate("#b", TypeChannel)
	b.Key = "kb"
	b.JoinState = StateJoined

	c := s.GetOrCreate("#c", TypeChannel)
	c.Key = "kc"
	c.JoinState = StateJoined

	got := s.Autojoin()
	want := "#b,#c,#a kb,kc"
	if got != want {
		t.Errorf("Autojoin() = %q, want %q", got, want)
	}
}

func TestAutojoinExcludesPartedChannels(t *testing.T) {
	s := NewStore(casefold.ASCII)
	a := s.GetOrCreate("#a", TypeChannel)
	a.JoinState = StateJoined
	b := s.GetOrCreate("#b", TypeChannel)
	b.JoinState = StateJoined
	b.Part = true

	got := s.Autojoin()
	if got != "#a" {
		t.Errorf("Autojoin() = %q, want #a (parted channel excluded)", got)
	}
}

func TestRemoveNickReindexes(t *testing.T) {
	ch := NewChannel("#go", TypeChannel, casefold.ASCII)
	ch.AddNick(&Nick{Name: "alice"})
	ch.AddNick(&Nick{Name: "bob"})
	ch.AddNick(&Nick{Name: "carol"})

	ch.RemoveNick("alice")
	if ch.HasNick("alice") {
		t.Fatalf("alice should be removed")
	}
	if n, ok := ch.Nick("carol"); !ok || n.Name != "carol" {
		t.Fatalf("carol should remain findable after reindex, got %v ok=%v", n, ok)
	}
	if len(ch.Nicks()) != 2 {
		t.Fatalf("expected 2 nicks remaining, got %d", len(ch.Nicks()))
	}
}

func TestSetKeyAndLimitAreReflectedInModes(t *testing.T) {
	ch := NewChannel("#go", TypeChannel, casefold.ASCII)
	ch.SetModeFlag('n', true, "")
	ch.SetModeFlag('t', true, "")

	ch.SetKey("hunter2")
	ch.SetLimit(42)
	want := "+ntlk 42 hunter2"
	if ch.Modes != want {
		t.Fatalf("Modes after SetKey/SetLimit = %q, want %q", ch.Modes, want)
	}

	ch.ClearLimit()
	ch.ClearKey()
	want = "+nt"
	if ch.Modes != want {
		t.Fatalf("Modes after ClearLimit/ClearKey = %q, want %q", ch.Modes, want)
	}
}

func TestHistoryRecentlySpoke(t *testing.T) {
	h := NewHistory(4)
	if h.RecentlySpoke("alice") {
		t.Fatalf("no events recorded yet")
	}
	h.Record("alice", time.Now())
	if !h.RecentlySpoke("alice") {
		t.Errorf("alice should be recently spoken right after Record")
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(2)
	h.Record("alice", time.Now())
	h.Record("bob", time.Now())
	h.Record("carol", time.Now())

	if h.RecentlySpoke("alice") {
		t.Errorf("alice's event should have been evicted")
	}
	if !h.RecentlySpoke("bob") || !h.RecentlySpoke("carol") {
		t.Errorf("bob and carol should still be tracked")
	}
}
