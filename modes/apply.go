package modes

import (
	"fmt"
	"strings"
	"time"
)

// Target is the channel-state surface the mode interpreter mutates. It is
// satisfied by store.Channel; keeping it as an interface here (rather than
// importing package store) avoids a dependency cycle between modes and
// store, since store also needs modes.ChanModes/Prefix for classification.
type Target interface {
	// SetKey/ClearKey mirror a class-C 'k' mode into the channel's key field.
	SetKey(key string)
	ClearKey()
	// SetLimit/ClearLimit mirror a class-C 'l' mode into the channel's limit field.
	SetLimit(n int)
	ClearLimit()
	// AddListEntry/RemoveListEntry manage a class-A modelist (ban, except, ...).
	AddListEntry(letter byte, mask, setter string, at time.Time)
	RemoveListEntry(letter byte, mask string)
	// HasNick reports whether nick is present in the channel.
	HasNick(nick string) bool
	// AddPrefix/RemovePrefix add or remove a membership prefix character on
	// nick. ranking is the server's prefix display-character ranking
	// (PREFIX's Chars, highest rank first, e.g. "@%+"), used to keep a
	// nick's accumulated prefixes in the same relative order.
	AddPrefix(nick string, char byte, ranking string)
	RemovePrefix(nick string, char byte)
	// SetModeFlag records a class B/C/D letter (with optional argument) into
	// the channel's rendered "+<flags> <args>" mode string.
	SetModeFlag(letter byte, enabled bool, arg string)
	// RecentlySpoke reports whether nick has spoken within the smart-filter
	// window, used to decide smart-filter eligibility.
	RecentlySpoke(nick string) bool
}

// Result describes the outcome of applying one MODE command.
type Result struct {
	// SmartFiltered is true when every affected mode letter in the command
	// is individually eligible for smart-filter suppression (see spec §9's
	// open question: suppression is the conjunction of per-letter eligibility).
	SmartFiltered bool
}

// Apply interprets modeString (e.g. "+ovk-l alice bob secret") against
// target using cm/prefix for classification, following the algorithm of
// spec §4.4. setterIsLocal and smartFilterModes feed the smart-filter
// eligibility decision; whether an affected nick spoke recently is asked
// of target through RecentlySpoke.
func Apply(target Target, modeString string, args []string, cm ChanModes, prefix Prefix, setterIsLocal bool, smartFilterModes string) (Result, error) {
	fields := strings.Fields(modeString)
	if len(fields) == 0 {
		return Result{}, fmt.Errorf("modes: empty mode string")
	}
	letters := fields[0]

	argIdx := 0
	nextArg := func() (string, bool) {
		if argIdx < len(args) {
			a := args[argIdx]
			argIdx++
			return a, true
		}
		return "", false
	}

	sign := byte('+')
	allEligible := true
	anyLetters := false

	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c == '+' || c == '-' {
			sign = c
			continue
		}
		anyLetters = true
		eligible := smartFilterEligible(c, setterIsLocal, smartFilterModes)

		if char := prefix.CharFor(c); char != 0 {
			nick, ok := nextArg()
			if !ok {
				return Result{}, fmt.Errorf("modes: missing argument for prefix mode %q", c)
			}
			if !target.HasNick(nick) {
				continue
			}
			if sign == '+' {
				target.AddPrefix(nick, char, prefix.Chars)
			} else {
				target.RemovePrefix(nick, char)
			}
			eligible = eligible && !target.RecentlySpoke(nick)
			allEligible = allEligible && eligible
			continue
		}

		takesParam := TakesParam(c, sign, cm, prefix)
		var arg string
		if takesParam {
			a, ok := nextArg()
			// A bare "-k" with no key argument is accepted and clears the key.
			if !ok && !(c == 'k' && sign == '-') {
				return Result{}, fmt.Errorf("modes: missing argument for mode %q", c)
			}
			arg = a
		}

		switch {
		case c == 'k':
			if sign == '+' {
				if arg != "*" {
					target.SetKey(arg)
				}
			} else {
				target.ClearKey()
			}
		case c == 'l':
			if sign == '+' {
				if n, err := parseLimit(arg); err == nil {
					target.SetLimit(n)
				}
			} else {
				target.SetLimit(0)
				target.ClearLimit()
			}
		case classify(c, cm, prefix) == ClassA:
			if sign == '+' {
				target.AddListEntry(c, arg, "", time.Time{})
			} else {
				target.RemoveListEntry(c, arg)
			}
		default:
			target.SetModeFlag(c, sign == '+', arg)
		}

		allEligible = allEligible && eligible
	}

	return Result{SmartFiltered: anyLetters && allEligible}, nil
}

func parseLimit(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("modes: empty limit")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("modes: invalid limit %q", s)
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, nil
}

// smartFilterEligible reports whether letter c is, in isolation, eligible
// for smart-filter suppression: the setter isn't us, and c is in the
// user's configured smart-filter-modes set.
func smartFilterEligible(c byte, setterIsLocal bool, smartFilterModes string) bool {
	if setterIsLocal {
		return false
	}
	if smartFilterModes == "" {
		return false
	}
	return strings.IndexByte(smartFilterModes, c) >= 0
}

// ApplySelf interprets a reduced MODE command targeting the client's own
// nickname: letters are added/removed from current with no arguments
// consumed, per spec §4.4's "User MODE on self" rule. It returns the
// updated mode-letter set (sorted, deduplicated) and whether the
// configured "registered" mode letter's presence changed.
func ApplySelf(current string, modeString string, registeredLetter byte) (updated string, registeredChanged bool) {
	set := make(map[byte]bool, len(current))
	for i := 0; i < len(current); i++ {
		set[current[i]] = true
	}
	wasRegistered := registeredLetter != 0 && set[registeredLetter]

	sign := byte('+')
	for i := 0; i < len(modeString); i++ {
		c := modeString[i]
		switch c {
		case '+', '-':
			sign = c
		case ' ':
			// self-mode commands take no arguments; ignore stray spaces/args
		default:
			if sign == '+' {
				set[c] = true
			} else {
				delete(set, c)
			}
		}
	}

	isRegistered := registeredLetter != 0 && set[registeredLetter]
	out := make([]byte, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sortBytes(out)
	return string(out), wasRegistered != isRegistered
}

func sortBytes(b []byte) {
	for i := 1; i < len(b); i++ {
		for j := i; j > 0 && b[j-1] > b[j]; j-- {
			b[j-1], b[j] = b[j], b[j-1]
		}
	}
}
