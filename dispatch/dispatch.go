// Package dispatch implements the command/numeric handler table of spec
// §4.11: one entry per verb or numeric, each mutating server/channel state
// in package store and producing display lines for the router to tag.
//
// The table shape follows Travis-Britz-irc/router.go's Handle/HandleFunc
// registration, generalized from "first matching route wins" free-form
// routing to a direct command-keyed map, since dispatch has exactly one
// handler per command rather than arbitrary user-defined routes.
package dispatch

import (
	"fmt"

	"github.com/weechat/ircengine/casefold"
	"github.com/weechat/ircengine/config"
	"github.com/weechat/ircengine/ctcp"
	"github.com/weechat/ircengine/hooks"
	"github.com/weechat/ircengine/ircmsg"
	"github.com/weechat/ircengine/modes"
	"github.com/weechat/ircengine/router"
	"github.com/weechat/ircengine/serverfsm"
	"github.com/weechat/ircengine/store"
)

// Display is one line the caller should render in a buffer, tagged per
// package router's policy.
type Display struct {
	Target router.Target
	Tags   []string
	Text   string
}

// Result is everything a handler produced: raw lines to enqueue (dispatch
// never writes to a socket itself) and buffer lines to display.
type Result struct {
	// Send holds (command, args...) tuples; the caller enqueues them via
	// package outqueue, using High priority for registration/PONG/CTCP-reply
	// traffic and Normal for everything else dispatch emits (the MODE/WHO
	// queries after a local JOIN).
	Send [][]string
	// SendHighPriority mirrors Send's length with true at indices that must
	// be queued high-priority (PONG, AUTHENTICATE, CAP, nick-collision NICK,
	// CTCP reply NOTICEs).
	SendHighPriority []bool
	Display          []Display
	// Signals carries hook emissions a handler computed but cannot deliver
	// itself, since dispatch holds no reference to the hooks.Registry
	// (spec §5: dispatch performs no I/O, and a Registry is shared engine
	// state). The caller emits each one via Registry.Emit after carrying
	// out Send/Display.
	Signals []hooks.Signal
	// Err is a non-fatal, user-visible dispatch error (spec §4.11: "fatal
	// dispatch errors never crash the server").
	Err error
	// Action carries a serverfsm.Action when a handler drove the state
	// machine to schedule a reconnect or tear down the transport (e.g. a
	// SASL failure with sasl_fail=reconnect). The caller must carry it out;
	// dispatch itself performs no I/O.
	Action serverfsm.Action
}

func (r *Result) sendHigh(args ...string) {
	r.Send = append(r.Send, args)
	r.SendHighPriority = append(r.SendHighPriority, true)
}

func (r *Result) send(args ...string) {
	r.Send = append(r.Send, args)
	r.SendHighPriority = append(r.SendHighPriority, false)
}

func (r *Result) display(target router.Target, tags []string, text string) {
	r.Display = append(r.Display, Display{Target: target, Tags: tags, Text: text})
}

func (r *Result) signal(name string, payload any) {
	r.Signals = append(r.Signals, hooks.Signal{Name: name, Payload: payload})
}

// Handler processes one parsed message against ctx, returning the lines to
// send and display. Handlers are reentrant and only ever called from the
// main task, per spec §4.11.
type Handler func(ctx *Context, m *ircmsg.Message) Result

// Table maps a command verb or three-digit numeric to its Handler.
type Table map[ircmsg.Command]Handler

// New builds the default dispatch table covering every verb/numeric spec
// §4.11 enumerates.
func New() Table {
	t := Table{}
	t[ircmsg.CmdJoin] = handleJoin
	t[ircmsg.CmdPart] = handlePart
	t[ircmsg.CmdQuit] = handleQuit
	t[ircmsg.CmdNick] = handleNick
	t[ircmsg.CmdKick] = handleKick
	t[ircmsg.CmdTopic] = handleTopic
	t[ircmsg.CmdMode] = handleMode
	t[ircmsg.CmdPrivmsg] = handlePrivmsg
	t[ircmsg.CmdNotice] = handleNotice
	t[ircmsg.CmdPing] = handlePing
	t[ircmsg.CmdPong] = handlePong
	t[ircmsg.CmdCap] = handleCap
	t[ircmsg.CmdAuth] = handleAuthenticate
	t[ircmsg.CmdError] = handleError

	t[ircmsg.RplWelcome] = handleWelcome
	t[ircmsg.RplYourHost] = handleISupportIgnored
	t[ircmsg.RplCreated] = handleISupportIgnored
	t[ircmsg.RplMyInfo] = handleMyInfo
	t[ircmsg.RplISupport] = handleISupport

	t[ircmsg.RplNamReply] = handleNamReply
	t[ircmsg.RplEndOfNames] = handleEndOfNames
	t[ircmsg.RplTopic] = handleTopicNumeric
	t[ircmsg.RplTopicWhoTime] = handleTopicWhoTime
	t[ircmsg.RplNoTopic] = handleNoTopic
	t[ircmsg.RplChannelModeIs] = handleChannelModeIs

	t[ircmsg.RplBanList] = modelistHandler('b')
	t[ircmsg.RplEndOfBanList] = endOfModelistHandler('b')
	t[ircmsg.RplInviteList] = modelistHandler('I')
	t[ircmsg.RplEndOfInvite] = endOfModelistHandler('I')
	t[ircmsg.RplExceptList] = modelistHandler('e')
	t[ircmsg.RplEndOfExcept] = endOfModelistHandler('e')
	t[ircmsg.RplQuietList] = modelistHandler('q')
	t[ircmsg.RplEndOfQuiet] = endOfModelistHandler('q')

	t[ircmsg.RplLoggedIn] = handleSASLLoggedIn
	t[ircmsg.RplSaslSuccess] = handleSASLDone(true)
	t[ircmsg.ErrSaslFail] = handleSASLDone(false)
	t[ircmsg.ErrSaslTooLong] = handleSASLDone(false)
	t[ircmsg.ErrSaslAborted] = handleSASLDone(false)
	t[ircmsg.ErrSaslAlready] = handleSASLDone(false)

	for _, n := range []ircmsg.Command{ircmsg.ErrNoNickGiven, ircmsg.ErrErroneousNick,
		ircmsg.ErrNicknameInUse, ircmsg.ErrNickCollision, ircmsg.ErrUnavailRsrc} {
		t[n] = handleNickCollision
	}

	return t
}

// Dispatch looks up m's command in t and invokes its handler, returning a
// zero Result for unrecognized commands rather than an error: an unknown
// verb or numeric is not a dispatch failure per spec §4.11.
func (t Table) Dispatch(ctx *Context, m *ircmsg.Message) Result {
	h, ok := t[m.Command]
	if !ok {
		return Result{}
	}
	return h(ctx, m)
}

// Context bundles the per-server mutable state a Handler needs: the
// channel/nick store, the server state machine, ISUPPORT-derived
// parameters, and routing/CTCP configuration. Exactly one Context exists
// per connected server, owned and mutated only from the main task, per
// spec §5's "no shared-memory concurrency among engine components".
type Context struct {
	ServerName string

	Store *store.Store
	FSM   *serverfsm.Machine

	Mapping   casefold.Mapping
	ChanModes modes.ChanModes
	Prefix    modes.Prefix
	ChanTypes string

	SmartFilterModes string
	HighlightWords   []string

	CTCPTemplates ctcp.TemplateTable
	CTCPVars      ctcp.Vars
	CTCPUnknown   config.CTCPUnknownPolicy
	PluginName    string
	Proxy         string

	RouterCtx router.Context

	// pendingNames accumulates 353 tokens per folded channel name until 366.
	pendingNames map[string][]string
}

func (c *Context) fold(s string) string { return casefold.FoldString(s, c.Mapping) }

func (c *Context) routerCtx() router.Context {
	rc := c.RouterCtx
	rc.ServerName = c.ServerName
	rc.LocalNick = c.FSM.CurrentNick
	rc.PrefixChars = c.Prefix.Chars
	rc.ChanTypes = c.ChanTypes
	return rc
}

func (c *Context) tagOpts(suppress bool) router.TagOptions {
	return router.TagOptions{
		LocalNick:      c.FSM.CurrentNick,
		HighlightWords: c.HighlightWords,
		Suppress:       suppress,
	}
}

func handleError(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	target := router.Target{Server: ctx.ServerName, IsServerBuffer: true}
	text := m.Params.Get(1)
	r.display(target, router.Tags(m, target, ctx.tagOpts(false)), fmt.Sprintf("ERROR: %s", text))
	return r
}
