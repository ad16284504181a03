// Package modes implements the CHANMODES-classified MODE string
// interpreter described in spec §4.4: applying a MODE modifier string to
// channel or user-mode state using the server's advertised mode classes.
package modes

import "strings"

// Class is the ISUPPORT CHANMODES parameter class a mode letter belongs
// to, determining whether it takes an argument and when.
type Class int

const (
	// ClassA modes always take a parameter and manipulate a modelist
	// (e.g. ban, except, invite-except, quiet).
	ClassA Class = iota
	// ClassB modes always take a parameter when set or unset.
	ClassB
	// ClassC modes take a parameter only when being set (+), none when
	// cleared (-).
	ClassC
	// ClassD modes never take a parameter. Unknown letters default here.
	ClassD
)

// ChanModes is the parsed four-group CHANMODES ISUPPORT token.
type ChanModes struct {
	A, B, C, D string
}

// DefaultChanModes is used when a server omits CHANMODES entirely.
var DefaultChanModes = ChanModes{
	A: "beI",
	B: "k",
	C: "l",
	D: "psitnm",
}

// ParseChanModes parses an ISUPPORT CHANMODES=A,B,C,D token. Extra groups
// beyond D (some networks advertise more) are ignored, matching the
// four-class model spec §4.4 describes.
func ParseChanModes(token string) ChanModes {
	parts := strings.Split(token, ",")
	cm := ChanModes{}
	if len(parts) > 0 {
		cm.A = parts[0]
	}
	if len(parts) > 1 {
		cm.B = parts[1]
	}
	if len(parts) > 2 {
		cm.C = parts[2]
	}
	if len(parts) > 3 {
		cm.D = parts[3]
	}
	return cm
}

// Prefix is the ISUPPORT PREFIX=(modes)chars token: an ordered ranking of
// nick membership mode letters to their display characters.
type Prefix struct {
	Modes string // e.g. "ohv"
	Chars string // e.g. "@%+", parallel to Modes
}

// DefaultPrefix is used when a server omits PREFIX.
var DefaultPrefix = Prefix{Modes: "ov", Chars: "@+"}

// ParsePrefix parses a PREFIX=(ov)@+ token, returning DefaultPrefix if it
// doesn't match the expected shape.
func ParsePrefix(token string) Prefix {
	if len(token) < 2 || token[0] != '(' {
		return DefaultPrefix
	}
	close := strings.IndexByte(token, ')')
	if close < 0 {
		return DefaultPrefix
	}
	modes := token[1:close]
	chars := token[close+1:]
	if len(modes) != len(chars) {
		return DefaultPrefix
	}
	return Prefix{Modes: modes, Chars: chars}
}

// CharFor returns the display character for mode letter m, or 0 if m is
// not a membership mode.
func (p Prefix) CharFor(m byte) byte {
	if i := strings.IndexByte(p.Modes, m); i >= 0 {
		return p.Chars[i]
	}
	return 0
}

// ModeFor is the inverse of CharFor.
func (p Prefix) ModeFor(c byte) byte {
	if i := strings.IndexByte(p.Chars, c); i >= 0 {
		return p.Modes[i]
	}
	return 0
}

// classify resolves the class of letter, applying the documented
// override: any letter appearing in prefix.Modes is always treated as
// ClassB for parameter-counting purposes regardless of CHANMODES, and a
// letter that appears in none of CHANMODES' groups defaults to ClassD.
func classify(letter byte, cm ChanModes, prefix Prefix) Class {
	if strings.IndexByte(prefix.Modes, letter) >= 0 {
		return ClassB
	}
	switch {
	case strings.IndexByte(cm.A, letter) >= 0:
		return ClassA
	case strings.IndexByte(cm.B, letter) >= 0:
		return ClassB
	case strings.IndexByte(cm.C, letter) >= 0:
		return ClassC
	default:
		return ClassD
	}
}

// TakesParam reports whether letter consumes a parameter when applied with
// the given sign ('+' or '-').
func TakesParam(letter byte, sign byte, cm ChanModes, prefix Prefix) bool {
	switch classify(letter, cm, prefix) {
	case ClassA, ClassB:
		return true
	case ClassC:
		return sign == '+'
	default:
		return false
	}
}
