package router

import (
	"testing"

	"github.com/weechat/ircengine/ircmsg"
)

func TestChannelTargetOverridesSelector(t *testing.T) {
	m := ircmsg.NewMessage("PRIVMSG", "#go", "hello")
	tgt := Resolve(SelectorPrivate, m, Context{ServerName: "libera", ChanTypes: "#&"})
	if tgt.Channel != "#go" {
		t.Errorf("Resolve = %+v, want Channel=#go", tgt)
	}
}

func TestStatusMsgStillTargetsChannel(t *testing.T) {
	m := ircmsg.NewMessage("PRIVMSG", "@#go", "ops only")
	tgt := Resolve(SelectorServer, m, Context{ServerName: "libera", ChanTypes: "#&", PrefixChars: "@%+"})
	if tgt.Channel != "#go" {
		t.Errorf("Resolve = %+v, want Channel=#go (STATUSMSG stripped)", tgt)
	}
}

func TestSelectorWeechatDrops(t *testing.T) {
	m := ircmsg.NewMessage("NOTICE", "*", "server notice")
	tgt := Resolve(SelectorWeechat, m, Context{ServerName: "libera"})
	if !tgt.Dropped {
		t.Errorf("Resolve = %+v, want Dropped=true", tgt)
	}
}

func TestSelectorPrivateFallsBackToServer(t *testing.T) {
	m := &ircmsg.Message{Command: "INVITE", Source: ircmsg.Prefix{Nick: "bob"}}
	tgt := Resolve(SelectorPrivate, m, Context{
		ServerName:              "libera",
		FallbackPrivateToServer: true,
		HasPrivateBuffer:        func(string) bool { return false },
	})
	if !tgt.IsServerBuffer {
		t.Errorf("Resolve = %+v, want IsServerBuffer=true", tgt)
	}
}

func TestTagsBaseAndNumeric(t *testing.T) {
	m := ircmsg.NewMessage("PRIVMSG", "#go", "hi")
	tags := Tags(m, Target{Channel: "#go"}, TagOptions{LocalNick: "alice"})
	if !containsTag(tags, "irc_privmsg") {
		t.Errorf("Tags = %v, missing irc_privmsg", tags)
	}
	if !containsTag(tags, "notify_message") {
		t.Errorf("Tags = %v, missing notify_message", tags)
	}

	num := &ircmsg.Message{Command: "001", Params: ircmsg.Params{"alice", "welcome"}}
	tags = Tags(num, Target{IsServerBuffer: true}, TagOptions{})
	if !containsTag(tags, "irc_numeric") {
		t.Errorf("Tags = %v, missing irc_numeric", tags)
	}
}

func TestTagsSelfMsg(t *testing.T) {
	m := &ircmsg.Message{Command: "PRIVMSG", Source: ircmsg.Prefix{Nick: "alice"}, Params: ircmsg.Params{"#go", "hi"}}
	tags := Tags(m, Target{Channel: "#go"}, TagOptions{LocalNick: "alice"})
	if !containsTag(tags, "self_msg") {
		t.Errorf("Tags = %v, missing self_msg", tags)
	}
}

func TestTagsHighlightOnNickMention(t *testing.T) {
	m := &ircmsg.Message{Command: "PRIVMSG", Source: ircmsg.Prefix{Nick: "bob"}, Params: ircmsg.Params{"#go", "hey alice, check this"}}
	tags := Tags(m, Target{Channel: "#go"}, TagOptions{LocalNick: "alice"})
	if !containsTag(tags, "notify_highlight") {
		t.Errorf("Tags = %v, want notify_highlight", tags)
	}
}

func TestTagsIRCv3TagEscaped(t *testing.T) {
	m := &ircmsg.Message{Command: "PRIVMSG", Params: ircmsg.Params{"#go", "hi"}, Tags: ircmsg.Tags{"label": "a b;c"}}
	tags := Tags(m, Target{Channel: "#go"}, TagOptions{})
	if !containsTag(tags, "irc_tag_label_a_b_c") {
		t.Errorf("Tags = %v, want escaped irc_tag_label_a_b_c", tags)
	}
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
