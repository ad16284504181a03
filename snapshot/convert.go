package snapshot

import (
	"github.com/weechat/ircengine/outqueue"
	"github.com/weechat/ircengine/store"
)

// FromChannel renders ch into its persisted tuple.
func FromChannel(server string, ch *store.Channel) Channel {
	nicks := ch.Nicks()
	out := Channel{
		Server:      server,
		Name:        ch.Name,
		Type:        int(ch.Type),
		Topic:       ch.Topic,
		TopicSetter: ch.TopicSetter,
		TopicTime:   ch.TopicTime,
		Modes:       ch.Modes,
		Limit:       ch.Limit,
		Key:         ch.Key,
		Nicks:       make([]NickEntry, 0, len(nicks)),
	}
	for _, n := range nicks {
		out.Nicks = append(out.Nicks, NickEntry{
			Name:     n.Name,
			Host:     n.Host,
			Account:  n.Account,
			Prefixes: n.Prefixes,
		})
	}
	for _, letter := range []byte("beIq") {
		for _, item := range ch.Modelist(letter) {
			out.Modelists = append(out.Modelists, ModelistEntry{
				Letter:    letter,
				Mask:      item.Mask,
				Setter:    item.Setter,
				Timestamp: item.Timestamp,
			})
		}
	}
	return out
}

// FromQueue renders a queue's surviving lines into the out_queue_remnants
// tuple. A nil queue (a server that never connected) yields no lines.
func FromQueue(q *outqueue.Queue) []QueuedLine {
	if q == nil {
		return nil
	}
	lines := q.Snapshot()
	out := make([]QueuedLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, QueuedLine{Bytes: l.Bytes(), Tags: l.Tags})
	}
	return out
}
