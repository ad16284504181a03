// Package hooks implements the public hook surface of spec §4.12: the
// signal/modifier/infolist points the excluded plugin subsystem would
// attach to. The engine invokes every hook inline, synchronously, from
// the main task; none may block.
//
// The chaining shape follows Travis-Britz-irc/handlers.go's wrap()
// composition (a handler wrapped by middleware in a fixed order), but
// generalized from a build-time-only chain to a dynamically
// register/unregister-able, priority-ordered one: plugins attach and
// detach at runtime, unlike the teacher's handler chain which is
// assembled once in Client.ConnectAndRun.
package hooks

import "sort"

// SignalHandler observes a signal's payload. It must not block or retain
// the payload past the call.
type SignalHandler func(payload any)

// ModifierHandler transforms a string in place, returning the value the
// next modifier in priority order will see.
type ModifierHandler func(input string) string

// InfolistFunc produces a snapshot of field-named records, WeeChat's
// traditional infolist shape: each record is a flat set of named fields.
type InfolistFunc func() []map[string]string

// ID identifies a registered hook for later removal via Unhook.
type ID int

type signalEntry struct {
	id       ID
	priority int
	seq      int
	handler  SignalHandler
}

type modifierEntry struct {
	id       ID
	priority int
	seq      int
	handler  ModifierHandler
}

// Registry holds every signal, modifier, and infolist hook for one
// Engine. Spec §5 places it among the engine's global mutable state,
// touched only from the main task.
type Registry struct {
	signals   map[string][]signalEntry
	modifiers map[string][]modifierEntry
	infolists map[string]InfolistFunc

	nextID ID
	seq    int
}

// NewRegistry returns an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{
		signals:   make(map[string][]signalEntry),
		modifiers: make(map[string][]modifierEntry),
		infolists: make(map[string]InfolistFunc),
	}
}

// Signal registers h against name. Lower priority numbers run first;
// among equal priorities, registration order decides, matching spec
// §5's "relative order between two hooks with equal priority is
// registration order."
func (r *Registry) Signal(name string, priority int, h SignalHandler) ID {
	r.nextID++
	id := r.nextID
	r.seq++
	entries := append(r.signals[name], signalEntry{id: id, priority: priority, seq: r.seq, handler: h})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].priority < entries[j].priority })
	r.signals[name] = entries
	return id
}

// Modifier registers h against name with the same priority/order rules
// as Signal.
func (r *Registry) Modifier(name string, priority int, h ModifierHandler) ID {
	r.nextID++
	id := r.nextID
	r.seq++
	entries := append(r.modifiers[name], modifierEntry{id: id, priority: priority, seq: r.seq, handler: h})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].priority < entries[j].priority })
	r.modifiers[name] = entries
	return id
}

// Infolist registers fn as the producer for name, replacing any prior
// producer. Unlike signals and modifiers, only one producer exists per
// infolist name, mirroring WeeChat's hook_infolist semantics.
func (r *Registry) Infolist(name string, fn InfolistFunc) {
	r.infolists[name] = fn
}

// Unhook removes a previously registered signal or modifier hook. It is
// a no-op if id is unknown, which keeps callers from needing to track
// which map an ID belongs to.
func (r *Registry) Unhook(id ID) {
	for name, entries := range r.signals {
		for i, e := range entries {
			if e.id == id {
				r.signals[name] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
	for name, entries := range r.modifiers {
		for i, e := range entries {
			if e.id == id {
				r.modifiers[name] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Emit invokes every signal hook registered for name, in priority order,
// passing payload unchanged to each.
func (r *Registry) Emit(name string, payload any) {
	for _, e := range r.signals[name] {
		e.handler(payload)
	}
}

// ApplyModifiers runs every modifier registered for name over input in
// priority order, each handler seeing the prior one's output, per spec
// §4.12.
func (r *Registry) ApplyModifiers(name string, input string) string {
	for _, e := range r.modifiers[name] {
		input = e.handler(input)
	}
	return input
}

// RunInfolist returns name's current snapshot, or (nil, false) if no
// producer is registered.
func (r *Registry) RunInfolist(name string) ([]map[string]string, bool) {
	fn, ok := r.infolists[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}
