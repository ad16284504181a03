package ircmsg

// Message builders for commonly sent commands. Each returns a *Message
// ready to be handed to an outbound queue; none of them set a prefix,
// since clients never set their own.

func Msg(target, text string) *Message    { return NewMessage(CmdPrivmsg, target, text) }
func Notice(target, text string) *Message { return NewMessage(CmdNotice, target, text) }

func Nick(name string) *Message  { return NewMessage(CmdNick, name) }
func Join(channel string) *Message {
	return NewMessage(CmdJoin, channel)
}
func JoinWithKey(channel, key string) *Message {
	return NewMessage(CmdJoin, channel, key)
}
func Part(channel, reason string) *Message {
	if reason == "" {
		return NewMessage(CmdPart, channel)
	}
	return NewMessage(CmdPart, channel, reason)
}
func Quit(reason string) *Message { return NewMessage(CmdQuit, reason) }

func Kick(channel, nick, reason string) *Message {
	if reason == "" {
		return NewMessage(CmdKick, channel, nick)
	}
	return NewMessage(CmdKick, channel, nick, reason)
}

func Topic(channel, topic string) *Message { return NewMessage(CmdTopic, channel, topic) }

func ModeQuery(target string) *Message { return NewMessage(CmdMode, target) }

func ModeSet(target string, args ...string) *Message {
	return NewMessage(CmdMode, append([]string{target}, args...)...)
}

func Invite(nick, channel string) *Message { return NewMessage(CmdInvite, nick, channel) }

func Ping(token string) *Message { return NewMessage(CmdPing, token) }
func Pong(token string) *Message { return NewMessage(CmdPong, token) }

func Pass(password string) *Message { return NewMessage(CmdPass, password) }

// User builds the RFC 2812 registration USER command.
func User(user, realname string) *Message {
	return NewMessage(CmdUser, user, "0", "*", realname)
}

func Cap(args ...string) *Message  { return NewMessage(CmdCap, args...) }
func CapLS(version string) *Message { return Cap("LS", version) }
func CapReq(caps string) *Message   { return Cap("REQ", caps) }
func CapList() *Message             { return Cap("LIST") }
func CapEnd() *Message              { return Cap("END") }

func AuthenticateStep(payload string) *Message { return NewMessage(CmdAuth, payload) }

// CTCP builds a CTCP-encoded request message, wrapping args in the \x01
// delimiter pair. Any stray \x01 in args is sanitized to a space first,
// matching the firewall-ALG mitigation described in spec §4.7.
func CTCP(target, ctype, args string) *Message {
	return NewMessage(CmdPrivmsg, target, wrapCTCP(ctype, args))
}

// CTCPReply builds a CTCP reply, sent as a NOTICE per the CTCP convention.
func CTCPReply(target, ctype, args string) *Message {
	return NewMessage(CmdNotice, target, wrapCTCP(ctype, args))
}

func wrapCTCP(ctype, args string) string {
	body := sanitizeCTCPArg(ctype)
	if args != "" {
		body += " " + sanitizeCTCPArg(args)
	}
	return string([]byte{CTCPDelim}) + body + string([]byte{CTCPDelim})
}

func sanitizeCTCPArg(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == CTCPDelim {
			out[i] = ' '
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}

// Describe builds a CTCP ACTION, the "/me" convention.
func Describe(target, action string) *Message {
	return CTCP(target, "ACTION", action)
}
