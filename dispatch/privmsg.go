package dispatch

import (
	"fmt"
	"time"

	"github.com/weechat/ircengine/config"
	"github.com/weechat/ircengine/ctcp"
	"github.com/weechat/ircengine/hooks"
	"github.com/weechat/ircengine/ircmsg"
	"github.com/weechat/ircengine/router"
)

func handlePrivmsg(ctx *Context, m *ircmsg.Message) Result {
	return handleMessageLike(ctx, m, false)
}

func handleNotice(ctx *Context, m *ircmsg.Message) Result {
	return handleMessageLike(ctx, m, true)
}

// handleMessageLike implements spec §4.11's shared PRIVMSG/NOTICE
// contract: CTCP extraction per §4.7, otherwise buffer routing via
// package router, plus speaking-history updates for channel targets.
func handleMessageLike(ctx *Context, m *ircmsg.Message, isNotice bool) Result {
	var r Result
	if len(m.Params) < 2 {
		return r
	}
	targetParam := m.Params.Get(1)
	body := m.Params.Get(2)

	if frame, ok := ctcp.Extract(body); ok {
		return handleCTCP(ctx, m, targetParam, frame, isNotice)
	}

	routerCtx := ctx.routerCtx()
	target := router.Resolve(selectorFor(targetParam, isNotice), m, routerCtx)
	if target.Dropped {
		return r
	}

	if ch, ok := ctx.Store.Get(targetChannelOrNick(target)); ok {
		ch.History().Record(string(m.Source.Nick), time.Now())
	}

	tags := router.Tags(m, target, ctx.tagOpts(false))
	r.display(target, tags, fmt.Sprintf("<%s> %s", m.Source.Nick, body))
	return r
}

func selectorFor(target string, isNotice bool) router.Selector {
	if isNotice {
		return router.SelectorServer
	}
	_ = target
	return router.SelectorPrivate
}

func targetChannelOrNick(t router.Target) string {
	if t.Channel != "" {
		return t.Channel
	}
	return t.Nick
}

// handleCTCP implements spec §4.7: ACTION and PING get built-in handling,
// DCC is parsed and handed off as an XferSignal, everything else consults
// the template table and replies via NOTICE, sanitizing the reply body.
func handleCTCP(ctx *Context, m *ircmsg.Message, targetParam string, frame ctcp.Frame, isReply bool) Result {
	var r Result
	routerCtx := ctx.routerCtx()

	r.signal(hooks.SignalCTCP, hooks.CTCPPayload{Server: ctx.ServerName, Message: m, Frame: frame, IsReply: isReply})

	switch ctcp.Classify(frame.Type) {
	case ctcp.BuiltinAction:
		target := router.Resolve(router.SelectorPrivate, m, routerCtx)
		if ch, ok := ctx.Store.Get(targetChannelOrNick(target)); ok {
			ch.History().Record(string(m.Source.Nick), time.Now())
		}
		tags := router.Tags(m, target, ctx.tagOpts(false))
		r.display(target, tags, fmt.Sprintf("* %s %s", m.Source.Nick, frame.Args))
		return r

	case ctcp.BuiltinPing:
		target := router.Resolve(router.SelectorPrivate, m, routerCtx)
		tags := router.Tags(m, target, ctx.tagOpts(false))
		r.display(target, tags, fmt.Sprintf("CTCP PING from %s", m.Source.Nick))
		if !isReply {
			r.sendHigh("NOTICE", string(m.Source.Nick), wrapCTCPReply("PING", frame.Args))
		}
		return r

	case ctcp.BuiltinDCC:
		req, err := ctcp.ParseDCC(frame.Args)
		if err != nil {
			r.Err = err
			return r
		}
		xfer := ctcp.NewXferSignal(req, ctx.PluginName, ctx.ServerName, string(m.Source.Nick), ctx.FSM.CurrentNick, ctx.Proxy)
		r.signal(hooks.SignalDCC, hooks.DCCPayload{Server: ctx.ServerName, Signal: xfer})
		r.signal(xferSignalName(req.Kind), hooks.DCCPayload{Server: ctx.ServerName, Signal: xfer})
		target := router.Target{Server: ctx.ServerName, IsServerBuffer: true}
		r.display(target, []string{"irc_dcc"}, fmt.Sprintf("DCC %s request from %s", frame.Type, m.Source.Nick))
		return r
	}

	if isReply {
		return r
	}
	template, found := ctx.CTCPTemplates.Lookup(ctx.ServerName, frame.Type)
	switch {
	case found && template == "":
		// An explicitly blank template means "block silently" (spec §4.7),
		// not the same as no template existing at all.
		return r
	case found:
		vars := ctx.CTCPVars
		vars.Now = time.Now()
		reply := ctcp.SanitizeReply(ctcp.Expand(template, vars))
		r.sendHigh("NOTICE", string(m.Source.Nick), wrapCTCPReply(frame.Type, reply))
	case ctx.CTCPUnknown == config.CTCPUnknownRespond:
		r.sendHigh("NOTICE", string(m.Source.Nick), wrapCTCPReply("ERRMSG", frame.Type+" :Unknown query"))
	}
	return r
}

// xferSignalName maps a DCC sub-command to the xfer collaborator signal
// spec §4.7.1 names for it: SEND/CHAT start a new transfer, RESUME asks
// to restart one, ACCEPT confirms the restart.
func xferSignalName(kind ctcp.DCCKind) string {
	switch kind {
	case ctcp.DCCResume:
		return hooks.SignalXferStartResume
	case ctcp.DCCAccept:
		return hooks.SignalXferAcceptResume
	default:
		return hooks.SignalXferAdd
	}
}

func wrapCTCPReply(ctype, args string) string {
	msg := ircmsg.CTCPReply("x", ctype, args)
	// CTCPReply builds a full NOTICE message; re-extract just the body so
	// the caller can enqueue it as a plain NOTICE with the real target.
	return msg.Params.Get(2)
}
