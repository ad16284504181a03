package hooks

import (
	"strconv"

	"github.com/weechat/ircengine/serverfsm"
	"github.com/weechat/ircengine/store"
)

// Infolist names spec §4.12 enumerates.
const (
	InfolistServer       = "irc_server"
	InfolistChannel      = "irc_channel"
	InfolistNick         = "irc_nick"
	InfolistModelist     = "irc_modelist"
	InfolistModelistItem = "irc_modelist_item"
)

// ServerFields renders m's identity and connection state as an
// irc_server infolist record, the stable field-name shape plugins
// expect from WeeChat's actual irc_server infolist.
func ServerFields(name string, m *serverfsm.Machine) map[string]string {
	cfg := m.Config()
	return map[string]string{
		"name":          name,
		"status":        m.Status.String(),
		"nick":          m.CurrentNick,
		"username":      cfg.Username,
		"realname":      cfg.Realname,
		"autoreconnect": strconv.FormatBool(cfg.Autoreconnect),
		"lag":           strconv.FormatInt(m.LastLagMillis(), 10),
	}
}

// ChannelFields renders ch as an irc_channel infolist record.
func ChannelFields(server string, ch *store.Channel) map[string]string {
	typ := "channel"
	if ch.Type == store.TypePrivate {
		typ = "private"
	}
	return map[string]string{
		"server":       server,
		"name":         ch.Name,
		"type":         typ,
		"topic":        ch.Topic,
		"topic_setter": ch.TopicSetter,
		"modes":        ch.Modes,
		"nicks_count":  strconv.Itoa(len(ch.Nicks())),
	}
}

// NickFields renders n as an irc_nick infolist record.
func NickFields(server, channel string, n *store.Nick) map[string]string {
	return map[string]string{
		"server":   server,
		"channel":  channel,
		"name":     n.Name,
		"host":     n.Host,
		"account":  n.Account,
		"prefixes": n.Prefixes,
		"away":     strconv.FormatBool(n.IsAway),
	}
}

// ModelistFields renders one class-A modelist's identity as an
// irc_modelist infolist record; ModelistItemFields renders its entries.
func ModelistFields(server, channel string, letter byte) map[string]string {
	return map[string]string{
		"server":  server,
		"channel": channel,
		"type":    string(letter),
	}
}

func ModelistItemFields(server, channel string, letter byte, item store.ModelistItem) map[string]string {
	return map[string]string{
		"server":    server,
		"channel":   channel,
		"type":      string(letter),
		"mask":      item.Mask,
		"setter":    item.Setter,
		"timestamp": strconv.FormatInt(item.Timestamp.Unix(), 10),
	}
}

// ServerInfolist builds an InfolistFunc over the given servers, keyed by
// name, suitable for registration under InfolistServer.
func ServerInfolist(servers map[string]*serverfsm.Machine) InfolistFunc {
	return func() []map[string]string {
		out := make([]map[string]string, 0, len(servers))
		for name, m := range servers {
			out = append(out, ServerFields(name, m))
		}
		return out
	}
}

// ChannelInfolist builds an InfolistFunc over every channel in st,
// suitable for registration under InfolistChannel.
func ChannelInfolist(server string, st *store.Store) InfolistFunc {
	return func() []map[string]string {
		chans := st.Channels()
		out := make([]map[string]string, 0, len(chans))
		for _, ch := range chans {
			out = append(out, ChannelFields(server, ch))
		}
		return out
	}
}
