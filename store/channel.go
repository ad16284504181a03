// Package store implements the per-server channel and nick collection of
// spec §4.5: casemapping-aware lookup, modelists, speaking history, and
// the autojoin reconstruction used by scenario 5 of spec §8.
package store

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/weechat/ircengine/casefold"
)

// ChannelType distinguishes a real channel from a private (query) buffer,
// per the Channel entity in spec §3.
type ChannelType int

const (
	TypeChannel ChannelType = iota
	TypePrivate
)

// JoinState tracks a channel's membership lifecycle.
type JoinState int

const (
	StateJoining JoinState = iota
	StateJoined
	StateParting
	StateParted
)

// ModelistItem is one entry of a class-A modelist (ban, except, ...).
type ModelistItem struct {
	Mask      string
	Setter    string
	Timestamp time.Time
}

// Channel is the per-server Channel entity of spec §3.
type Channel struct {
	Name   string // unfolded, as received from the server
	Type   ChannelType
	Topic  string
	TopicSetter string
	TopicTime   time.Time

	Modes string // rendered "+<flags> <args>" string, e.g. "+nt" or "+k key1"
	modeArgs map[byte]string
	modeOrder []byte // insertion order of class B/C/D flag letters, for stable rendering

	Limit int
	Key   string

	JoinState JoinState
	// Part marks a channel excluded from autojoin reconstruction even
	// though it may still be retained in history (spec §3 lifecycle note).
	Part bool

	DisplayCreationDate bool
	NickCompletionReset bool

	nicks      []*Nick
	nickIndex  map[string]int // folded name -> index into nicks
	modelists  map[byte][]ModelistItem

	history *History

	mapping casefold.Mapping
}

// NewChannel constructs a Channel with empty state, using mapping for all
// nick lookups performed against it.
func NewChannel(name string, typ ChannelType, mapping casefold.Mapping) *Channel {
	return &Channel{
		Name:      name,
		Type:      typ,
		modeArgs:  map[byte]string{},
		nickIndex: map[string]int{},
		modelists: map[byte][]ModelistItem{},
		history:   NewHistory(DefaultHistoryCapacity),
		mapping:   mapping,
	}
}

func (c *Channel) fold(s string) string { return casefold.FoldString(s, c.mapping) }

// Nicks returns the channel's nicks in stable insertion order.
func (c *Channel) Nicks() []*Nick {
	out := make([]*Nick, len(c.nicks))
	copy(out, c.nicks)
	return out
}

// Nick looks up a nick by name, casemapping-aware.
func (c *Channel) Nick(name string) (*Nick, bool) {
	i, ok := c.nickIndex[c.fold(name)]
	if !ok {
		return nil, false
	}
	return c.nicks[i], true
}

func (c *Channel) HasNick(name string) bool {
	_, ok := c.nickIndex[c.fold(name)]
	return ok
}

// AddNick adds nick to the channel if not already present (JOIN of an
// already-joined channel is a no-op on Nicks, per spec §8).
func (c *Channel) AddNick(n *Nick) {
	key := c.fold(n.Name)
	if _, exists := c.nickIndex[key]; exists {
		return
	}
	c.nickIndex[key] = len(c.nicks)
	c.nicks = append(c.nicks, n)
}

// RemoveNick removes a nick by name.
func (c *Channel) RemoveNick(name string) {
	key := c.fold(name)
	i, ok := c.nickIndex[key]
	if !ok {
		return
	}
	c.nicks = append(c.nicks[:i], c.nicks[i+1:]...)
	delete(c.nickIndex, key)
	for k, idx := range c.nickIndex {
		if idx > i {
			c.nickIndex[k] = idx - 1
		}
	}
}

// RenameNick updates a nick's name in place, preserving its position and
// state (prefixes, host, etc.), folded under the channel's casemapping.
func (c *Channel) RenameNick(oldName, newName string) {
	key := c.fold(oldName)
	i, ok := c.nickIndex[key]
	if !ok {
		return
	}
	delete(c.nickIndex, key)
	c.nicks[i].Name = newName
	c.nickIndex[c.fold(newName)] = i
}

// History returns the channel's speaking-history FIFO.
func (c *Channel) History() *History { return c.history }

// --- modes.Target implementation ---

func (c *Channel) SetKey(key string) { c.Key = key; c.renderModes() }
func (c *Channel) ClearKey()         { c.Key = ""; c.renderModes() }
func (c *Channel) SetLimit(n int)    { c.Limit = n; c.renderModes() }
func (c *Channel) ClearLimit()       { c.Limit = 0; c.renderModes() }

func (c *Channel) AddListEntry(letter byte, mask, setter string, at time.Time) {
	for _, e := range c.modelists[letter] {
		if e.Mask == mask {
			return
		}
	}
	if at.IsZero() {
		at = time.Now()
	}
	c.modelists[letter] = append(c.modelists[letter], ModelistItem{Mask: mask, Setter: setter, Timestamp: at})
}

func (c *Channel) RemoveListEntry(letter byte, mask string) {
	entries := c.modelists[letter]
	for i, e := range entries {
		if e.Mask == mask {
			c.modelists[letter] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Modelist returns the current entries for letter, or nil if none.
func (c *Channel) Modelist(letter byte) []ModelistItem { return c.modelists[letter] }

func (c *Channel) AddPrefix(nick string, char byte, ranking string) {
	n, ok := c.Nick(nick)
	if !ok {
		return
	}
	n.addPrefix(char, ranking)
}

func (c *Channel) RemovePrefix(nick string, char byte) {
	n, ok := c.Nick(nick)
	if !ok {
		return
	}
	n.removePrefix(char)
}

func (c *Channel) SetModeFlag(letter byte, enabled bool, arg string) {
	if enabled {
		if _, exists := c.modeArgs[letter]; !exists {
			c.modeOrder = append(c.modeOrder, letter)
		}
		c.modeArgs[letter] = arg
	} else {
		delete(c.modeArgs, letter)
		for i, l := range c.modeOrder {
			if l == letter {
				c.modeOrder = append(c.modeOrder[:i], c.modeOrder[i+1:]...)
				break
			}
		}
	}
	c.renderModes()
}

// renderModes rebuilds c.Modes from modeOrder/modeArgs plus the dedicated
// Key/Limit fields, so c.Modes is always the single source of truth for a
// channel's rendered mode string — callers never need a separate
// "with limit" accessor to see a `+kl` change.
func (c *Channel) renderModes() {
	var flags strings.Builder
	var args []string
	for _, l := range c.modeOrder {
		flags.WriteByte(l)
		if a := c.modeArgs[l]; a != "" {
			args = append(args, a)
		}
	}
	if c.Limit > 0 {
		flags.WriteByte('l')
		args = append(args, strconv.Itoa(c.Limit))
	}
	if c.Key != "" {
		flags.WriteByte('k')
		args = append(args, c.Key)
	}
	c.Modes = "+" + flags.String()
	if len(args) > 0 {
		c.Modes += " " + strings.Join(args, " ")
	}
}

func (c *Channel) RecentlySpoke(nick string) bool {
	return c.history.RecentlySpoke(nick)
}

// BuildAutojoin reconstructs the "/join" autojoin string for the given
// channels in the order described by spec §8 scenario 5: channels with a
// key first (in their original join order), then keyless channels (in
// their original join order), with each group's channel names
// comma-joined and keys space-joined after the channel list. Channels
// marked Part are excluded.
func BuildAutojoin(channels []*Channel) string {
	var keyed, keyless []*Channel
	for _, ch := range channels {
		if ch.Part {
			continue
		}
		if ch.Key != "" {
			keyed = append(keyed, ch)
		} else {
			keyless = append(keyless, ch)
		}
	}
	names := make([]string, 0, len(keyed)+len(keyless))
	keys := make([]string, 0, len(keyed))
	for _, ch := range keyed {
		names = append(names, ch.Name)
		keys = append(keys, ch.Key)
	}
	for _, ch := range keyless {
		names = append(names, ch.Name)
	}
	if len(keys) == 0 {
		return strings.Join(names, ",")
	}
	return strings.Join(names, ",") + " " + strings.Join(keys, ",")
}

// sortedModelistLetters is a small helper for diagnostics/snapshotting
// that want a deterministic iteration order over a channel's modelists.
func (c *Channel) sortedModelistLetters() []byte {
	letters := make([]byte, 0, len(c.modelists))
	for l := range c.modelists {
		letters = append(letters, l)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return letters
}
