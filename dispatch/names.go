package dispatch

import (
	"strconv"
	"strings"
	"time"

	"github.com/weechat/ircengine/casefold"
	"github.com/weechat/ircengine/ircmsg"
	"github.com/weechat/ircengine/modes"
	"github.com/weechat/ircengine/router"
	"github.com/weechat/ircengine/store"
)

// handleWelcome implements numeric 001: the server's final confirmed nick
// transitions the state machine to registered.
func handleWelcome(ctx *Context, m *ircmsg.Message) Result {
	ctx.FSM.CurrentNick = m.Params.Get(1)
	ctx.FSM.Welcome()
	var r Result
	target := router.Target{Server: ctx.ServerName, IsServerBuffer: true}
	r.display(target, router.Tags(m, target, ctx.tagOpts(false)), m.Params.Get(2))
	return r
}

// handleISupportIgnored covers 002/003 (YOURHOST/CREATED), which are
// purely informational.
func handleISupportIgnored(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	target := router.Target{Server: ctx.ServerName, IsServerBuffer: true}
	r.display(target, router.Tags(m, target, ctx.tagOpts(false)), m.Params.Get(len(m.Params)))
	return r
}

// handleMyInfo covers 004, which names the server/version but carries no
// fields dispatch needs beyond display.
func handleMyInfo(ctx *Context, m *ircmsg.Message) Result {
	return handleISupportIgnored(ctx, m)
}

// handleISupport parses numeric 005's KEY=VALUE tokens and populates the
// server-wide ISUPPORT-derived fields, per spec §4.11.
func handleISupport(ctx *Context, m *ircmsg.Message) Result {
	for _, tok := range m.Params[1 : len(m.Params)-1] {
		key, val, hasVal := strings.Cut(tok, "=")
		switch strings.ToUpper(key) {
		case "CASEMAPPING":
			ctx.Mapping = casefold.Parse(val)
		case "CHANMODES":
			if hasVal {
				ctx.ChanModes = modes.ParseChanModes(val)
			}
		case "PREFIX":
			if hasVal {
				ctx.Prefix = modes.ParsePrefix(val)
			}
		case "CHANTYPES":
			ctx.ChanTypes = val
		}
	}
	return Result{}
}

// handleNamReply accumulates a 353 response's nick tokens, including
// their prefix characters, keyed by folded channel name until 366 commits
// them to the channel.
func handleNamReply(ctx *Context, m *ircmsg.Message) Result {
	if ctx.pendingNames == nil {
		ctx.pendingNames = map[string][]string{}
	}
	channel := m.Params.Get(3)
	tokens := strings.Fields(m.Params.Get(len(m.Params)))
	key := ctx.fold(channel)
	ctx.pendingNames[key] = append(ctx.pendingNames[key], tokens...)
	return Result{}
}

// handleEndOfNames implements numeric 366: commit the accumulated nick
// list, decoding each entry's leading prefix characters against the
// server's PREFIX ranking.
func handleEndOfNames(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	channel := m.Params.Get(2)
	key := ctx.fold(channel)
	tokens := ctx.pendingNames[key]
	delete(ctx.pendingNames, key)

	ch := ctx.Store.GetOrCreate(channel, store.TypeChannel)
	for _, tok := range tokens {
		name, prefixes := splitNamePrefixes(tok, ctx.Prefix.Chars)
		if name == "" {
			continue
		}
		n := &store.Nick{Name: name, Prefixes: prefixes}
		ch.AddNick(n)
	}
	return r
}

func splitNamePrefixes(tok, prefixChars string) (name, prefixes string) {
	i := 0
	for i < len(tok) && strings.IndexByte(prefixChars, tok[i]) >= 0 {
		i++
	}
	return tok[i:], tok[:i]
}

func handleTopicNumeric(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	channel := m.Params.Get(2)
	ch, ok := ctx.Store.Get(channel)
	if !ok {
		return r
	}
	ch.Topic = m.Params.Get(3)
	target := router.Target{Server: ctx.ServerName, Channel: channel}
	r.display(target, router.Tags(m, target, ctx.tagOpts(false)), "Topic for "+channel+" is \""+ch.Topic+"\"")
	return r
}

func handleTopicWhoTime(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	channel := m.Params.Get(2)
	ch, ok := ctx.Store.Get(channel)
	if !ok {
		return r
	}
	ch.TopicSetter = m.Params.Get(3)
	if sec, err := strconv.ParseInt(m.Params.Get(4), 10, 64); err == nil {
		ch.TopicTime = time.Unix(sec, 0)
	}
	return r
}

func handleNoTopic(ctx *Context, m *ircmsg.Message) Result {
	channel := m.Params.Get(2)
	if ch, ok := ctx.Store.Get(channel); ok {
		ch.Topic = ""
		ch.TopicSetter = ""
		ch.TopicTime = time.Time{}
	}
	return Result{}
}

func timeFromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
