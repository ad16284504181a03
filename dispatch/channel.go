package dispatch

import (
	"fmt"
	"strconv"
	"time"

	"github.com/weechat/ircengine/ircmsg"
	"github.com/weechat/ircengine/modes"
	"github.com/weechat/ircengine/router"
	"github.com/weechat/ircengine/store"
)

// handleJoin implements spec §4.11's JOIN contract: create the channel if
// absent, add the source nick with empty prefixes, and when the source is
// us, transition to joined and request MODE/WHO.
func handleJoin(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	channel := m.Params.Get(1)
	if channel == "" {
		return r
	}
	isLocal := m.Source.Nick.Is(ctx.FSM.CurrentNick)

	ch := ctx.Store.GetOrCreate(channel, store.TypeChannel)
	ch.AddNick(&store.Nick{Name: string(m.Source.Nick), Host: m.Source.Host})

	if isLocal {
		ch.JoinState = store.StateJoined
		ch.Part = false
		r.send("MODE", channel)
		r.send("WHO", channel)
	}

	target := router.Target{Server: ctx.ServerName, Channel: channel}
	tags := router.Tags(m, target, ctx.tagOpts(false))
	r.display(target, tags, fmt.Sprintf("%s has joined %s", m.Source.Nick, channel))
	return r
}

// handlePart removes the source nick; if the source is us, the channel is
// marked parted rather than removed outright, so history/settings survive
// a later rejoin.
func handlePart(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	channel := m.Params.Get(1)
	ch, ok := ctx.Store.Get(channel)
	if !ok {
		return r
	}
	isLocal := m.Source.Nick.Is(ctx.FSM.CurrentNick)
	ch.RemoveNick(string(m.Source.Nick))
	if isLocal {
		ch.JoinState = store.StateParted
		ch.Part = true
	}

	target := router.Target{Server: ctx.ServerName, Channel: channel}
	tags := router.Tags(m, target, ctx.tagOpts(false))
	reason := m.Params.Get(2)
	text := fmt.Sprintf("%s has left %s", m.Source.Nick, channel)
	if reason != "" {
		text += " (" + reason + ")"
	}
	r.display(target, tags, text)
	return r
}

// handleQuit removes the source nick from every channel that contained
// them and displays one line per affected channel, per spec §4.11.
func handleQuit(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	reason := m.Params.Get(1)
	for _, ch := range ctx.Store.Channels() {
		if !ch.HasNick(string(m.Source.Nick)) {
			continue
		}
		ch.RemoveNick(string(m.Source.Nick))
		target := router.Target{Server: ctx.ServerName, Channel: ch.Name}
		tags := router.Tags(m, target, ctx.tagOpts(false))
		text := fmt.Sprintf("%s has quit", m.Source.Nick)
		if reason != "" {
			text += " (" + reason + ")"
		}
		r.display(target, tags, text)
	}
	return r
}

// handleNick renames the source nick in every channel that contains them
// and, when the source is us, updates the server's current nick in the
// state machine.
func handleNick(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	newNick := m.Params.Get(1)
	oldNick := string(m.Source.Nick)
	for _, ch := range ctx.Store.Channels() {
		if !ch.HasNick(oldNick) {
			continue
		}
		ch.RenameNick(oldNick, newNick)
		target := router.Target{Server: ctx.ServerName, Channel: ch.Name}
		tags := router.Tags(m, target, ctx.tagOpts(false))
		r.display(target, tags, fmt.Sprintf("%s is now known as %s", oldNick, newNick))
	}
	if m.Source.Nick.Is(ctx.FSM.CurrentNick) {
		ctx.FSM.CurrentNick = newNick
	}
	return r
}

// handleKick removes the target nick; when the target is us, the channel
// is marked parted rather than removed, matching handlePart's policy of
// retaining state for a later rejoin.
func handleKick(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	channel := m.Params.Get(1)
	targetNick := m.Params.Get(2)
	reason := m.Params.Get(3)
	ch, ok := ctx.Store.Get(channel)
	if !ok {
		return r
	}
	ch.RemoveNick(targetNick)
	if ircmsg.Nickname(targetNick).Is(ctx.FSM.CurrentNick) {
		ch.JoinState = store.StateParted
		ch.Part = true
	}

	target := router.Target{Server: ctx.ServerName, Channel: channel}
	tags := router.Tags(m, target, ctx.tagOpts(false))
	text := fmt.Sprintf("%s has kicked %s", m.Source.Nick, targetNick)
	if reason != "" {
		text += " (" + reason + ")"
	}
	r.display(target, tags, text)
	return r
}

// handleTopic updates the channel's topic and setter/time fields.
func handleTopic(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	channel := m.Params.Get(1)
	ch, ok := ctx.Store.Get(channel)
	if !ok {
		return r
	}
	ch.Topic = m.Params.Get(2)
	ch.TopicSetter = string(m.Source.Nick)
	ch.TopicTime = time.Now()

	target := router.Target{Server: ctx.ServerName, Channel: channel}
	tags := router.Tags(m, target, ctx.tagOpts(false))
	r.display(target, tags, fmt.Sprintf("%s has changed topic for %s to \"%s\"", m.Source.Nick, channel, ch.Topic))
	return r
}

// handleMode dispatches a channel or self MODE to package modes, applying
// the smart-filter eligibility decision (spec §9's open question) to
// suppress the display line when every changed letter qualifies.
func handleMode(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	target := m.Params.Get(1)
	if target == "" {
		return r
	}

	if !isChannelName(target, ctx.ChanTypes) {
		updated, _ := modes.ApplySelf(ctx.FSM.CurrentUserModes, m.Params.Get(2), 'r')
		ctx.FSM.CurrentUserModes = updated
		return r
	}

	ch, ok := ctx.Store.Get(target)
	if !ok {
		return r
	}
	modeString := m.Params.Get(2)
	args := []string(m.Params)
	if len(args) > 2 {
		args = args[2:]
	} else {
		args = nil
	}
	setterIsLocal := m.Source.Nick.Is(ctx.FSM.CurrentNick)
	res, err := modes.Apply(ch, modeString, args, ctx.ChanModes, ctx.Prefix, setterIsLocal, ctx.SmartFilterModes)
	if err != nil {
		r.Err = err
		return r
	}

	dispTarget := router.Target{Server: ctx.ServerName, Channel: target}
	tags := router.Tags(m, dispTarget, ctx.tagOpts(res.SmartFiltered))
	r.display(dispTarget, tags, fmt.Sprintf("%s sets mode %s %s on %s", m.Source.Nick, modeString, joinArgs(args), target))
	return r
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func isChannelName(s, chanTypes string) bool {
	if s == "" {
		return false
	}
	if chanTypes == "" {
		chanTypes = "#&"
	}
	for i := 0; i < len(chanTypes); i++ {
		if s[0] == chanTypes[i] {
			return true
		}
	}
	return false
}

// handleChannelModeIs handles numeric 324, a full mode-string snapshot
// sent in reply to a MODE query.
func handleChannelModeIs(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	channel := m.Params.Get(2)
	ch, ok := ctx.Store.Get(channel)
	if !ok {
		return r
	}
	modeString := m.Params.Get(3)
	args := []string(m.Params)
	if len(args) > 3 {
		args = args[3:]
	} else {
		args = nil
	}
	modes.Apply(ch, modeString, args, ctx.ChanModes, ctx.Prefix, false, "")
	return r
}

func modelistHandler(letter byte) Handler {
	return func(ctx *Context, m *ircmsg.Message) Result {
		var r Result
		channel := m.Params.Get(2)
		ch, ok := ctx.Store.Get(channel)
		if !ok {
			return r
		}
		mask := m.Params.Get(3)
		setter := m.Params.Get(4)
		var at int64
		if ts := m.Params.Get(5); ts != "" {
			at, _ = strconv.ParseInt(ts, 10, 64)
		}
		ch.AddListEntry(letter, mask, setter, timeFromUnix(at))
		return r
	}
}

func endOfModelistHandler(letter byte) Handler {
	return func(ctx *Context, m *ircmsg.Message) Result {
		_ = letter
		return Result{}
	}
}
