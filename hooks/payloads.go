package hooks

import (
	"github.com/weechat/ircengine/ctcp"
	"github.com/weechat/ircengine/ircmsg"
)

// Signal names spec §4.12 enumerates. irc_in_<command> and
// irc_out_<command> are built per-command with InCommand/OutCommand.
const (
	SignalRawIn            = "irc_raw_in"
	SignalRawOut           = "irc_raw_out"
	SignalServerConnected  = "irc_server_connected"
	SignalServerDisconnect = "irc_server_disconnected"
	SignalCTCP             = "irc_ctcp"
	SignalDCC              = "irc_dcc"
	SignalPV               = "irc_pv"
	SignalXferAdd          = "xfer_add"
	SignalXferAcceptResume = "xfer_accept_resume"
	SignalXferStartResume  = "xfer_start_resume"
)

// Signal pairs a signal name with its payload, letting a producer (e.g.
// package dispatch) hand off an emission without importing Registry
// itself; the caller that owns the Registry emits it.
type Signal struct {
	Name    string
	Payload any
}

// InCommand and OutCommand build the per-command signal name for a
// parsed command or numeric, e.g. InCommand("JOIN") == "irc_in_join".
func InCommand(cmd ircmsg.Command) string  { return "irc_in_" + lower(string(cmd)) }
func OutCommand(cmd ircmsg.Command) string { return "irc_out_" + lower(string(cmd)) }

// Modifier names spec §4.12 enumerates. irc_in2_<command> and
// irc_out1_<command> are built per-command with InModifier/OutModifier.
const (
	ModifierIn  = "irc_in"
	ModifierOut = "irc_out"
)

func InModifier(cmd ircmsg.Command) string  { return "irc_in2_" + lower(string(cmd)) }
func OutModifier(cmd ircmsg.Command) string { return "irc_out1_" + lower(string(cmd)) }

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// RawPayload carries an unparsed wire line for irc_raw_in/irc_raw_out.
type RawPayload struct {
	Server string
	Line   string
}

// MessagePayload carries a parsed message for irc_in_<command> and
// irc_out_<command>.
type MessagePayload struct {
	Server  string
	Message *ircmsg.Message
}

// ServerPayload carries just a server name, for
// irc_server_connected/irc_server_disconnected.
type ServerPayload struct {
	Server string
}

// CTCPPayload carries a decoded CTCP frame for irc_ctcp.
type CTCPPayload struct {
	Server  string
	Message *ircmsg.Message
	Frame   ctcp.Frame
	IsReply bool
}

// DCCPayload carries a decoded DCC offer for irc_dcc and the xfer_*
// signals.
type DCCPayload struct {
	Server string
	Signal ctcp.XferSignal
}

// PVPayload carries a private message for irc_pv, spec §4.12's signal
// for direct (non-channel) PRIVMSG traffic.
type PVPayload struct {
	Server string
	Nick   string
	Text   string
}
