package dispatch

import (
	"encoding/base64"
	"strings"

	"github.com/weechat/ircengine/ircmsg"
	"github.com/weechat/ircengine/router"
	"github.com/weechat/ircengine/serverfsm"
)

// handleCap implements the CAP subcommand switch of spec §4.11: LS
// drives negotiation, ACK/NAK decide whether to start SASL or end the
// dialog, NEW/DEL are runtime notifications with no registration effect.
// A LIST reply matches no case and produces nothing.
func handleCap(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	if len(m.Params) < 2 {
		return r
	}
	sub := strings.ToUpper(m.Params.Get(2))
	switch sub {
	case "LS":
		offered := strings.Fields(m.Params.Get(len(m.Params)))
		more := len(m.Params) == 4 && m.Params.Get(3) == "*"
		if req := ctx.FSM.HandleCapLS(offered, more); req != nil {
			r.sendHigh(req...)
		}
		if !more {
			if end := ctx.FSM.CapEnd(); end != nil {
				r.sendHigh(end...)
			}
		}
	case "ACK":
		acked := strings.Fields(m.Params.Get(len(m.Params)))
		ctx.FSM.HandleCapAck(acked)
		if ctx.FSM.SASLAcked() {
			if line := ctx.FSM.StartSASL(); line != nil {
				r.sendHigh(line...)
			}
		} else if end := ctx.FSM.CapEnd(); end != nil {
			r.sendHigh(end...)
		}
	case "NAK":
		if end := ctx.FSM.CapEnd(); end != nil {
			r.sendHigh(end...)
		}
	case "NEW", "DEL":
		// Runtime capability change notifications; outside the
		// registration dialog, so no FSM transition applies.
	}
	return r
}

// handleAuthenticate implements the SASL mechanism dialog's payload leg:
// a "+" from the server requests the next (or only) base64-encoded
// payload chunk.
func handleAuthenticate(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	if m.Params.Get(1) != "+" {
		return r
	}
	raw := ctx.FSM.SASLPayloadPlain()
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))
	if encoded == "" {
		encoded = "+"
	}
	r.sendHigh("AUTHENTICATE", encoded)
	return r
}

// handleSASLLoggedIn covers numeric 900, purely informational.
func handleSASLLoggedIn(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	target := router.Target{Server: ctx.ServerName, IsServerBuffer: true}
	r.display(target, router.Tags(m, target, ctx.tagOpts(false)), m.Params.Get(len(m.Params)))
	return r
}

// handleSASLDone covers 903 (success) and 904-907 (failure), finalizing
// the SASL dialog and, on success, completing CAP END.
func handleSASLDone(success bool) Handler {
	return func(ctx *Context, m *ircmsg.Message) Result {
		var r Result
		action, _ := ctx.FSM.SASLResult(success)
		r.Action = action
		if success {
			if end := ctx.FSM.CapEnd(); end != nil {
				r.sendHigh(end...)
			}
		}
		return r
	}
}

// handleNickCollision covers 431-437 during authentication: advance to
// the next configured nick, or a numeric-suffixed one once exhausted.
// Once registered, the same numerics can arrive for an unrelated NICK
// attempt and are left for the UI to surface as an error instead.
func handleNickCollision(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	if ctx.FSM.Status != serverfsm.StatusAuthenticating {
		return r
	}
	r.sendHigh(ctx.FSM.AdvanceNick()...)
	return r
}
