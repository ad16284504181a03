// Package router implements the display-buffer selection policy and
// display-tag computation of spec §4.6: given a server, a parsed message,
// and the command's routing hints, it decides which buffer should receive
// the line and which tags are attached to it.
//
// The policy is expressed the way Travis-Britz-irc/router.go expresses
// route matching: small composable matcher predicates evaluated in order,
// rather than a monolithic switch.
package router

import (
	"fmt"
	"strings"

	"github.com/weechat/ircengine/ircmsg"
)

// Selector names one of the target-buffer policies of spec §4.6's table.
type Selector int

const (
	// SelectorWeechat drops the message to the core; no IRC buffer.
	SelectorWeechat Selector = iota
	// SelectorServer routes to the server's root buffer.
	SelectorServer
	// SelectorCurrent routes to the currently-focused buffer if it
	// belongs to this server, else the server buffer.
	SelectorCurrent
	// SelectorPrivate routes to the private-conversation buffer for the
	// message source's nick, creating or falling back to server.
	SelectorPrivate
)

// Target identifies the resolved destination buffer for a message.
type Target struct {
	// Server is always set to the originating server's name.
	Server string
	// Channel is set when the destination is a channel buffer.
	Channel string
	// Nick is set when the destination is a private-conversation buffer.
	Nick string
	// IsServerBuffer is true when neither Channel nor Nick apply: the
	// message belongs on the server's root buffer.
	IsServerBuffer bool
	// Dropped is true for SelectorWeechat: no IRC buffer receives this.
	Dropped bool
}

// Context carries the routing inputs a Resolve call needs beyond the
// message itself.
type Context struct {
	ServerName string
	// LocalNick is the client's current nickname on this server.
	LocalNick string
	// PrefixChars is the server's PREFIX display-character ranking
	// (e.g. "@%+"), used to recognize a STATUSMSG-prefixed target.
	PrefixChars string
	// ChanTypes is the server's CHANTYPES ISUPPORT value (e.g. "#&").
	ChanTypes string
	// CurrentBufferServer/CurrentBufferChannel describe the UI's
	// currently-focused buffer, used by SelectorCurrent.
	CurrentBufferServer  string
	CurrentBufferChannel string
	// HasPrivateBuffer reports whether a private buffer already exists
	// for nick, used by SelectorPrivate's create-or-fallback rule.
	HasPrivateBuffer func(nick string) bool
	// FallbackPrivateToServer controls SelectorPrivate's behavior when no
	// private buffer exists: true routes to server, false creates one.
	FallbackPrivateToServer bool
}

// Resolve applies the spec §4.6 table for a command whose routing hint is
// selector, given the parsed message m. For channel-targeted PRIVMSG/NOTICE
// the channel always wins regardless of selector, per the spec's override.
func Resolve(selector Selector, m *ircmsg.Message, ctx Context) Target {
	if (m.Command == "PRIVMSG" || m.Command == "NOTICE") && len(m.Params) > 0 {
		if target, stripped, isStatus := splitStatusMsg(m.Params[0], ctx.PrefixChars); isChannel(stripped, ctx.ChanTypes) {
			_ = target
			return Target{Server: ctx.ServerName, Channel: stripped}
		} else if isStatus {
			// STATUSMSG to a non-channel-looking target still resolves by
			// selector; fall through.
			_ = isStatus
		}
	}

	switch selector {
	case SelectorWeechat:
		return Target{Server: ctx.ServerName, Dropped: true}
	case SelectorServer:
		return Target{Server: ctx.ServerName, IsServerBuffer: true}
	case SelectorCurrent:
		if ctx.CurrentBufferServer == ctx.ServerName && ctx.CurrentBufferChannel != "" {
			return Target{Server: ctx.ServerName, Channel: ctx.CurrentBufferChannel}
		}
		return Target{Server: ctx.ServerName, IsServerBuffer: true}
	case SelectorPrivate:
		nick := string(m.Source.Nick)
		if nick == "" {
			return Target{Server: ctx.ServerName, IsServerBuffer: true}
		}
		if ctx.HasPrivateBuffer != nil && ctx.HasPrivateBuffer(nick) {
			return Target{Server: ctx.ServerName, Nick: nick}
		}
		if ctx.FallbackPrivateToServer {
			return Target{Server: ctx.ServerName, IsServerBuffer: true}
		}
		return Target{Server: ctx.ServerName, Nick: nick}
	default:
		return Target{Server: ctx.ServerName, IsServerBuffer: true}
	}
}

// isChannel reports whether s begins with one of chanTypes' bytes.
func isChannel(s, chanTypes string) bool {
	if s == "" {
		return false
	}
	if chanTypes == "" {
		chanTypes = "#&"
	}
	return strings.IndexByte(chanTypes, s[0]) >= 0
}

// splitStatusMsg strips a leading STATUSMSG prefix character (one of
// prefixChars) from target, reporting the stripped form and whether a
// prefix was present.
func splitStatusMsg(target, prefixChars string) (original, stripped string, hadStatus bool) {
	if prefixChars == "" || target == "" {
		return target, target, false
	}
	if strings.IndexByte(prefixChars, target[0]) >= 0 {
		return target, target[1:], true
	}
	return target, target, false
}

// NotifyLevel is the `notify_*` display tag family of spec §4.6.
type NotifyLevel string

const (
	NotifyNone      NotifyLevel = "notify_none"
	NotifyMessage   NotifyLevel = "notify_message"
	NotifyPrivate   NotifyLevel = "notify_private"
	NotifyHighlight NotifyLevel = "notify_highlight"
)

// TagOptions configures Tags' highlight/suppression decisions.
type TagOptions struct {
	LocalNick string
	// HighlightWords are additional case-insensitive substrings (beyond
	// LocalNick) that trigger notify_highlight.
	HighlightWords []string
	// Suppress forces no_highlight regardless of content, used for
	// smart-filtered lines and other configured suppressions.
	Suppress bool
}

// Tags computes the full display-tag set for m, per spec §4.6: the
// irc_<command>/irc_numeric base tags, one irc_tag_<key>_<value> per
// IRCv3 tag, self_msg, notify_*, and no_highlight.
func Tags(m *ircmsg.Message, target Target, opts TagOptions) []string {
	var tags []string

	if isNumeric(string(m.Command)) {
		tags = append(tags, "irc_numeric")
	} else {
		tags = append(tags, "irc_"+strings.ToLower(string(m.Command)))
	}

	for _, k := range sortedTagKeys(m.Tags) {
		v := m.Tags[k]
		tags = append(tags, fmt.Sprintf("irc_tag_%s_%s", escapeTagForDisplay(k), escapeTagForDisplay(v)))
	}

	isSelf := opts.LocalNick != "" && strings.EqualFold(string(m.Source.Nick), opts.LocalNick)
	if isSelf {
		tags = append(tags, "self_msg")
	}

	level := classifyNotify(m, target, opts, isSelf)
	tags = append(tags, string(level))

	if opts.Suppress {
		tags = append(tags, "no_highlight")
	}

	return tags
}

func classifyNotify(m *ircmsg.Message, target Target, opts TagOptions, isSelf bool) NotifyLevel {
	if isSelf {
		return NotifyNone
	}
	text := ""
	if len(m.Params) > 0 {
		text = m.Params[len(m.Params)-1]
	}
	if target.Nick != "" {
		return NotifyPrivate
	}
	if opts.LocalNick != "" && containsFold(text, opts.LocalNick) {
		return NotifyHighlight
	}
	for _, w := range opts.HighlightWords {
		if containsFold(text, w) {
			return NotifyHighlight
		}
	}
	if m.Command == "PRIVMSG" || m.Command == "NOTICE" {
		return NotifyMessage
	}
	return NotifyNone
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func isNumeric(cmd string) bool {
	if len(cmd) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if cmd[i] < '0' || cmd[i] > '9' {
			return false
		}
	}
	return true
}

func sortedTagKeys(tags ircmsg.Tags) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// escapeTagForDisplay replaces ';' and ' ', which would otherwise break a
// WeeChat tag-list's own delimiter, with '_'.
func escapeTagForDisplay(s string) string {
	r := strings.NewReplacer(";", "_", " ", "_")
	return r.Replace(s)
}
