package dispatch

import (
	"time"

	"github.com/weechat/ircengine/ircmsg"
)

// handlePing responds with PONG mirroring the payload on the high-priority
// out-queue, per spec §4.11.
func handlePing(ctx *Context, m *ircmsg.Message) Result {
	var r Result
	r.sendHigh("PONG", m.Params.Get(1))
	return r
}

// handlePong matches an outstanding lag check; unmatched PONGs (echoing a
// server-initiated PING reply) are silently ignored.
func handlePong(ctx *Context, m *ircmsg.Message) Result {
	ctx.FSM.LagPong(m.Params.Get(len(m.Params)), time.Now())
	return Result{}
}
