package ircmsg

import (
	"fmt"
	"strings"
)

// Text returns the free-form text portion of a message, for the handful of
// commands that carry one. err is non-nil for unsupported commands but the
// returned string is still usable (the full parameter list joined with
// spaces) for callers that don't care to distinguish.
func (m *Message) Text() (string, error) {
	switch m.Command {
	case "QUIT", "ERROR":
		return m.Params.Get(1), nil
	case "PRIVMSG", "NOTICE", "TOPIC", "KICK", "PART", "MODE":
		return m.Params.Get(2), nil
	default:
		return strings.Join(m.Params, " "), fmt.Errorf("ircmsg: Text: command %s is not supported", m.Command)
	}
}

// Target returns the intended target of the message: a nickname for
// queries, a channel name for channel messages, possibly prefixed with a
// STATUSMSG membership-prefix character.
func (m *Message) Target() (string, error) {
	switch m.Command {
	case "PRIVMSG", "NOTICE", "INVITE", "TOPIC", "KICK", "PART", "MODE":
		return m.Params.Get(1), nil
	default:
		return "", fmt.Errorf("ircmsg: Target: command %s is not supported", m.Command)
	}
}

// Chan returns the channel name a message applies to, with any STATUSMSG
// prefix characters stripped, or "" if the message target wasn't a
// channel. statusPrefixes and chanTypes come from the server's ISUPPORT
// STATUSMSG/CHANTYPES; pass "" for either to skip that stripping/check.
func (m *Message) Chan(statusPrefixes, chanTypes string) (string, error) {
	var target string
	switch m.Command {
	case "PRIVMSG", "NOTICE", "JOIN", "TOPIC", "KICK", "PART":
		target = m.Params.Get(1)
	case "INVITE":
		target = m.Params.Get(2)
	default:
		return "", fmt.Errorf("ircmsg: Chan: command %s is not supported", m.Command)
	}
	for len(target) > 0 && strings.ContainsRune(statusPrefixes, rune(target[0])) {
		target = target[1:]
	}
	if chanTypes != "" && (target == "" || !strings.ContainsRune(chanTypes, rune(target[0]))) {
		return "", nil
	}
	return target, nil
}

// StatusPrefix returns the STATUSMSG prefix character of a PRIVMSG/NOTICE
// target, or 0 if the target carries none of statusPrefixes.
func StatusPrefix(target, statusPrefixes string) byte {
	if len(target) == 0 || statusPrefixes == "" {
		return 0
	}
	if strings.IndexByte(statusPrefixes, target[0]) >= 0 {
		return target[0]
	}
	return 0
}
