package store

import "github.com/weechat/ircengine/casefold"

// Store is the per-server collection of channels and private buffers,
// keyed with casemapping-aware lookup per spec §4.5.
type Store struct {
	mapping casefold.Mapping

	channels []*Channel
	index    map[string]int // folded name -> index into channels
}

// NewStore constructs an empty Store using mapping for all name folding.
// Mapping updates mid-connection (a server changing CASEMAPPING, which
// practically never happens) are not supported; callers should build a new
// Store in that case.
func NewStore(mapping casefold.Mapping) *Store {
	return &Store{
		mapping: mapping,
		index:   map[string]int{},
	}
}

func (s *Store) fold(name string) string { return casefold.FoldString(name, s.mapping) }

// Get looks up a channel or private buffer by name.
func (s *Store) Get(name string) (*Channel, bool) {
	i, ok := s.index[s.fold(name)]
	if !ok {
		return nil, false
	}
	return s.channels[i], true
}

// GetOrCreate returns the existing channel/buffer for name, or creates one
// of the given type and appends it in insertion order.
func (s *Store) GetOrCreate(name string, typ ChannelType) *Channel {
	if ch, ok := s.Get(name); ok {
		return ch
	}
	ch := NewChannel(name, typ, s.mapping)
	s.index[s.fold(name)] = len(s.channels)
	s.channels = append(s.channels, ch)
	return ch
}

// Remove deletes a channel/buffer from the store entirely (used on PART
// confirmation or when a query buffer is closed).
func (s *Store) Remove(name string) {
	key := s.fold(name)
	i, ok := s.index[key]
	if !ok {
		return
	}
	s.channels = append(s.channels[:i], s.channels[i+1:]...)
	delete(s.index, key)
	for k, idx := range s.index {
		if idx > i {
			s.index[k] = idx - 1
		}
	}
}

// Channels returns all channels/buffers in stable insertion order.
func (s *Store) Channels() []*Channel {
	out := make([]*Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// JoinedChannels returns only entries of TypeChannel currently in
// StateJoined, in insertion order, suitable for BuildAutojoin.
func (s *Store) JoinedChannels() []*Channel {
	var out []*Channel
	for _, ch := range s.channels {
		if ch.Type == TypeChannel && ch.JoinState == StateJoined {
			out = append(out, ch)
		}
	}
	return out
}

// Autojoin reconstructs the server's autojoin string from its currently
// joined channels, per spec §8 scenario 5.
func (s *Store) Autojoin() string {
	return BuildAutojoin(s.JoinedChannels())
}
