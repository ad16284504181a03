package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/weechat/ircengine/casefold"
	"github.com/weechat/ircengine/config"
	"github.com/weechat/ircengine/hooks"
	"github.com/weechat/ircengine/ircmsg"
	"github.com/weechat/ircengine/modes"
	"github.com/weechat/ircengine/serverfsm"
	"github.com/weechat/ircengine/store"
)

// msg builds a parsed-style Message: prefix (nick!user@host, or "" for
// none) followed by the command and its parameters.
func msg(prefix string, cmd ircmsg.Command, params ...string) *ircmsg.Message {
	m := ircmsg.NewMessage(cmd, params...)
	if prefix != "" {
		nick, rest, _ := strings.Cut(prefix, "!")
		user, host, _ := strings.Cut(rest, "@")
		m.Source = ircmsg.Prefix{Nick: ircmsg.Nickname(nick), User: user, Host: host}
	}
	return m
}

func newTestContext() *Context {
	fsm := serverfsm.New(serverfsm.Config{Nicks: []string{"alice"}, Username: "alice", Realname: "Alice"})
	fsm.Connect()
	fsm.WorkerConnected()
	fsm.CurrentNick = "alice"
	fsm.Welcome()

	return &Context{
		ServerName: "libera",
		Store:      store.NewStore(casefold.RFC1459),
		FSM:        fsm,
		ChanModes:  modes.DefaultChanModes,
		Prefix:     modes.DefaultPrefix,
		ChanTypes:  "#&",
	}
}

func TestJoinCreatesChannelAndAddsNick(t *testing.T) {
	ctx := newTestContext()
	tbl := New()

	m := msg("bob!b@host", "JOIN", "#weechat")
	res := tbl.Dispatch(ctx, m)

	ch, ok := ctx.Store.Get("#weechat")
	if !ok {
		t.Fatalf("expected #weechat to be created")
	}
	if !ch.HasNick("bob") {
		t.Errorf("expected bob to be added")
	}
	if len(res.Display) != 1 {
		t.Errorf("expected one display line, got %d", len(res.Display))
	}
}

func TestJoinBySelfTransitionsJoinedAndQueriesModeWho(t *testing.T) {
	ctx := newTestContext()
	tbl := New()

	m := msg("alice!a@host", "JOIN", "#weechat")
	res := tbl.Dispatch(ctx, m)

	ch, _ := ctx.Store.Get("#weechat")
	if ch.JoinState != store.StateJoined {
		t.Errorf("JoinState = %v, want StateJoined", ch.JoinState)
	}
	if len(res.Send) != 2 || res.Send[0][0] != "MODE" || res.Send[1][0] != "WHO" {
		t.Errorf("Send = %v, want [MODE WHO]", res.Send)
	}
}

func TestPartMarksChannelPartedOnSelf(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	tbl.Dispatch(ctx, msg("alice!a@host", "JOIN", "#weechat"))

	res := tbl.Dispatch(ctx, msg("alice!a@host", "PART", "#weechat", "bye"))
	ch, _ := ctx.Store.Get("#weechat")
	if ch.JoinState != store.StateParted || !ch.Part {
		t.Errorf("expected channel to be parted")
	}
	if len(res.Display) != 1 {
		t.Errorf("expected a part display line")
	}
}

func TestQuitRemovesFromAllChannels(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	tbl.Dispatch(ctx, msg("alice!a@host", "JOIN", "#a"))
	tbl.Dispatch(ctx, msg("alice!a@host", "JOIN", "#b"))
	tbl.Dispatch(ctx, msg("bob!b@host", "JOIN", "#a"))
	tbl.Dispatch(ctx, msg("bob!b@host", "JOIN", "#b"))

	res := tbl.Dispatch(ctx, msg("bob!b@host", "QUIT", "gone"))
	if len(res.Display) != 2 {
		t.Fatalf("expected a quit line per channel, got %d", len(res.Display))
	}
	chA, _ := ctx.Store.Get("#a")
	if chA.HasNick("bob") {
		t.Errorf("expected bob removed from #a")
	}
}

func TestNickRenamesEverywhereAndUpdatesSelf(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	tbl.Dispatch(ctx, msg("alice!a@host", "JOIN", "#a"))

	tbl.Dispatch(ctx, msg("alice!a@host", "NICK", "alice2"))
	if ctx.FSM.CurrentNick != "alice2" {
		t.Errorf("CurrentNick = %q, want alice2", ctx.FSM.CurrentNick)
	}
	ch, _ := ctx.Store.Get("#a")
	if !ch.HasNick("alice2") {
		t.Errorf("expected alice2 present in #a after rename")
	}
}

func TestModeAppliesToChannel(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	tbl.Dispatch(ctx, msg("alice!a@host", "JOIN", "#a"))
	tbl.Dispatch(ctx, msg("bob!b@host", "JOIN", "#a"))

	tbl.Dispatch(ctx, msg("bob!b@host", "MODE", "#a", "+o", "alice"))
	ch, _ := ctx.Store.Get("#a")
	n, _ := ch.Nick("alice")
	if !n.HasPrefix('@') {
		t.Errorf("expected alice to hold op prefix after +o")
	}
}

func TestModeOnSelfUpdatesUserModes(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	tbl.Dispatch(ctx, msg("", "MODE", "alice", "+i"))
	if ctx.FSM.CurrentUserModes != "i" {
		t.Errorf("CurrentUserModes = %q, want %q", ctx.FSM.CurrentUserModes, "i")
	}
}

func TestPingRespondsWithPong(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	res := tbl.Dispatch(ctx, msg("", "PING", "token123"))
	if len(res.Send) != 1 || res.Send[0][0] != "PONG" || res.Send[0][1] != "token123" {
		t.Errorf("Send = %v, want [[PONG token123]]", res.Send)
	}
	if !res.SendHighPriority[0] {
		t.Errorf("expected PONG to be high priority")
	}
}

func TestPrivmsgCTCPActionDisplaysAsEmote(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	res := tbl.Dispatch(ctx, msg("bob!b@host", "PRIVMSG", "alice", "\x01ACTION waves\x01"))
	if len(res.Display) != 1 || res.Display[0].Text != "* bob waves" {
		t.Errorf("Display = %v", res.Display)
	}
}

func TestPrivmsgCTCPVersionUsesTemplate(t *testing.T) {
	ctx := newTestContext()
	ctx.CTCPTemplates = map[string]string{"version": "testclient ${version}"}
	ctx.CTCPVars.Version = "1.0"
	tbl := New()
	res := tbl.Dispatch(ctx, msg("bob!b@host", "PRIVMSG", "alice", "\x01VERSION\x01"))
	if len(res.Send) != 1 || res.Send[0][0] != "NOTICE" {
		t.Fatalf("Send = %v, want a NOTICE reply", res.Send)
	}
}

func TestPrivmsgCTCPPingDisplaysAndReplies(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	res := tbl.Dispatch(ctx, msg("bob!b@host", "PRIVMSG", "alice", "\x01PING 12345\x01"))
	if len(res.Display) != 1 {
		t.Fatalf("Display = %v, want one line for the incoming CTCP PING", res.Display)
	}
	if len(res.Send) != 1 || res.Send[0][0] != "NOTICE" {
		t.Fatalf("Send = %v, want a NOTICE PING reply", res.Send)
	}
}

func TestPrivmsgCTCPEmitsSignal(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	res := tbl.Dispatch(ctx, msg("bob!b@host", "PRIVMSG", "alice", "\x01ACTION waves\x01"))
	if len(res.Signals) != 1 || res.Signals[0].Name != hooks.SignalCTCP {
		t.Fatalf("Signals = %v, want one irc_ctcp signal", res.Signals)
	}
}

func TestPrivmsgCTCPDCCEmitsXferSignal(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	res := tbl.Dispatch(ctx, msg("bob!b@host", "PRIVMSG", "alice", "\x01DCC SEND file.txt 3232235876 1025 1024\x01"))

	var gotCTCP, gotDCC, gotXferAdd bool
	for _, sig := range res.Signals {
		switch sig.Name {
		case hooks.SignalCTCP:
			gotCTCP = true
		case hooks.SignalDCC:
			gotDCC = true
		case hooks.SignalXferAdd:
			gotXferAdd = true
		}
	}
	if !gotCTCP || !gotDCC || !gotXferAdd {
		t.Fatalf("Signals = %v, want irc_ctcp + irc_dcc + xfer_add", res.Signals)
	}
}

func TestPrivmsgCTCPEmptyTemplateBlocksSilently(t *testing.T) {
	ctx := newTestContext()
	ctx.CTCPTemplates = map[string]string{"version": ""}
	tbl := New()
	res := tbl.Dispatch(ctx, msg("bob!b@host", "PRIVMSG", "alice", "\x01VERSION\x01"))
	if len(res.Send) != 0 {
		t.Fatalf("Send = %v, want no reply for a blank template", res.Send)
	}
}

func TestPrivmsgCTCPUnknownSilentByDefault(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	res := tbl.Dispatch(ctx, msg("bob!b@host", "PRIVMSG", "alice", "\x01FOOBAR\x01"))
	if len(res.Send) != 0 {
		t.Fatalf("Send = %v, want no reply for an unconfigured CTCP type by default", res.Send)
	}
}

func TestPrivmsgCTCPUnknownRespondsWhenConfigured(t *testing.T) {
	ctx := newTestContext()
	ctx.CTCPUnknown = config.CTCPUnknownRespond
	tbl := New()
	res := tbl.Dispatch(ctx, msg("bob!b@host", "PRIVMSG", "alice", "\x01FOOBAR\x01"))
	if len(res.Send) != 1 || res.Send[0][0] != "NOTICE" {
		t.Fatalf("Send = %v, want an unknown-query NOTICE reply", res.Send)
	}
}

func TestCapLSRequestsAndEndsImmediatelyWithoutSASL(t *testing.T) {
	ctx := newTestContext()
	ctx.FSM = serverfsm.New(serverfsm.Config{Nicks: []string{"alice"}, Username: "alice", Realname: "Alice", Caps: []string{"multi-prefix"}})
	ctx.FSM.Connect()
	ctx.FSM.WorkerConnected()
	tbl := New()

	res := tbl.Dispatch(ctx, msg("", "CAP", "*", "LS", "multi-prefix"))
	if len(res.Send) != 2 {
		t.Fatalf("Send = %v, want a REQ and then an END", res.Send)
	}
	if res.Send[0][0] != "CAP" || res.Send[0][1] != "REQ" {
		t.Errorf("first line = %v, want CAP REQ", res.Send[0])
	}
	if res.Send[1][0] != "CAP" || res.Send[1][1] != "END" {
		t.Errorf("second line = %v, want CAP END", res.Send[1])
	}
}

func TestCapAckStartsSASL(t *testing.T) {
	ctx := newTestContext()
	ctx.FSM = serverfsm.New(serverfsm.Config{
		Nicks: []string{"alice"}, Username: "alice", Realname: "Alice",
		SASL: &serverfsm.SASLConfig{Mechanism: "PLAIN", Username: "alice", Password: "hunter2", OnFailure: "reconnect"},
	})
	ctx.FSM.Connect()
	ctx.FSM.WorkerConnected()
	tbl := New()

	tbl.Dispatch(ctx, msg("", "CAP", "*", "LS", "sasl"))
	res := tbl.Dispatch(ctx, msg("", "CAP", "*", "ACK", "sasl"))
	if len(res.Send) != 1 || res.Send[0][0] != "AUTHENTICATE" || res.Send[0][1] != "PLAIN" {
		t.Fatalf("Send = %v, want AUTHENTICATE PLAIN", res.Send)
	}

	authRes := tbl.Dispatch(ctx, msg("", "AUTHENTICATE", "+"))
	if len(authRes.Send) != 1 || authRes.Send[0][0] != "AUTHENTICATE" {
		t.Fatalf("AUTHENTICATE response = %v", authRes.Send)
	}
	if authRes.Send[0][1] == "+" {
		t.Errorf("expected a base64 payload, not a bare +")
	}
}

func TestSASLSuccessSendsCapEnd(t *testing.T) {
	ctx := newTestContext()
	ctx.FSM = serverfsm.New(serverfsm.Config{
		Nicks: []string{"alice"}, Username: "alice", Realname: "Alice",
		SASL: &serverfsm.SASLConfig{Mechanism: "PLAIN", OnFailure: "reconnect"},
	})
	ctx.FSM.Connect()
	ctx.FSM.WorkerConnected()
	tbl := New()
	tbl.Dispatch(ctx, msg("", "CAP", "*", "LS", "sasl"))
	tbl.Dispatch(ctx, msg("", "CAP", "*", "ACK", "sasl"))

	res := tbl.Dispatch(ctx, msg("", "903", "alice", "SASL authentication successful"))
	if len(res.Send) != 1 || res.Send[0][0] != "CAP" || res.Send[0][1] != "END" {
		t.Fatalf("Send = %v, want CAP END", res.Send)
	}
}

func TestSASLFailureReconnectSchedulesAction(t *testing.T) {
	ctx := newTestContext()
	ctx.FSM = serverfsm.New(serverfsm.Config{
		Nicks: []string{"alice"}, Username: "alice", Realname: "Alice",
		Autoreconnect: true, ReconnectDelay: time.Second, ReconnectMaxMult: 10,
		SASL: &serverfsm.SASLConfig{Mechanism: "PLAIN", OnFailure: "reconnect"},
	})
	ctx.FSM.Connect()
	ctx.FSM.WorkerConnected()
	tbl := New()

	res := tbl.Dispatch(ctx, msg("", "904", "alice", "SASL auth failed"))
	if !res.Action.Disconnect {
		t.Errorf("expected a disconnect action on SASL failure")
	}
	if res.Action.ScheduleReconnect == 0 {
		t.Errorf("expected a reconnect to be scheduled")
	}
}

func TestNickCollisionDuringAuthAdvancesNick(t *testing.T) {
	ctx := newTestContext()
	ctx.FSM = serverfsm.New(serverfsm.Config{Nicks: []string{"alice", "alice_"}, Username: "alice", Realname: "Alice"})
	ctx.FSM.Connect()
	ctx.FSM.WorkerConnected()
	tbl := New()

	res := tbl.Dispatch(ctx, msg("", "433", "*", "alice", "Nickname is already in use"))
	if len(res.Send) != 1 || res.Send[0][0] != "NICK" || res.Send[0][1] != "alice_" {
		t.Fatalf("Send = %v, want NICK alice_", res.Send)
	}
}

func TestISupportPopulatesFields(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	tbl.Dispatch(ctx, msg("", "005", "alice", "CASEMAPPING=ascii", "CHANMODES=b,k,l,imnpst", "PREFIX=(ov)@+", "are supported by this server"))
	if ctx.Mapping != casefold.ASCII {
		t.Errorf("Mapping = %v, want ASCII", ctx.Mapping)
	}
	if ctx.ChanModes.A != "b" {
		t.Errorf("ChanModes.A = %q, want %q", ctx.ChanModes.A, "b")
	}
	if ctx.Prefix.Chars != "@+" {
		t.Errorf("Prefix.Chars = %q, want %q", ctx.Prefix.Chars, "@+")
	}
}

func TestNamesAccumulateUntilEndOfNames(t *testing.T) {
	ctx := newTestContext()
	tbl := New()
	tbl.Dispatch(ctx, msg("", "353", "alice", "=", "#a", "@bob +carol dave"))
	tbl.Dispatch(ctx, msg("", "366", "alice", "#a", "End of /NAMES list"))

	ch, ok := ctx.Store.Get("#a")
	if !ok {
		t.Fatalf("expected #a to exist after 366")
	}
	if !ch.HasNick("bob") || !ch.HasNick("carol") || !ch.HasNick("dave") {
		t.Fatalf("expected bob/carol/dave present, got %v", ch.Nicks())
	}
	bob, _ := ch.Nick("bob")
	if !bob.HasPrefix('@') {
		t.Errorf("expected bob to carry the op prefix from NAMES")
	}
}
