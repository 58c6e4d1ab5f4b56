package runtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/errors"
	"pairchat/observability"
)

type binding struct {
	name string
	sink contract.EventSink
}

// PresenceRegistry is the only owner of "who is online". It maps live
// connection handles to user names and their outbound sinks.
//
// Mutations hold the write lock; lookups share the read lock. The Identity
// Store is written after the lock is released, one writer per name at a
// time, and each write re-reads the registry so the stored presence always
// ends on the registry's latest state.
type PresenceRegistry struct {
	mu       sync.RWMutex
	bindings map[chat.Handle]binding
	handles  map[string]chat.Handle
	seen     map[string]struct{}

	users   contract.IIdentityStore
	writes  keyedMutex
	outbox  *outbox
	log     *slog.Logger
	nowFunc func() time.Time
}

func NewPresenceRegistry(users contract.IIdentityStore, monitor *observability.Monitor, log *slog.Logger) *PresenceRegistry {
	return &PresenceRegistry{
		bindings: make(map[chat.Handle]binding),
		handles:  make(map[string]chat.Handle),
		seen:     make(map[string]struct{}),
		users:    users,
		outbox:   newOutbox(log, monitor),
		log:      log,
		nowFunc:  time.Now,
	}
}

// Bind records handle as the live connection of name. A previous
// connection of the same name is evicted in the same critical section
// and told so with a sessionReplaced event.
// The returned error only concerns persistence; the binding is in place.
func (r *PresenceRegistry) Bind(ctx context.Context, handle chat.Handle, name string, sink contract.EventSink) error {
	r.mu.Lock()
	var evicted contract.EventSink
	if old, ok := r.handles[name]; ok && old != handle {
		evicted = r.bindings[old].sink
		delete(r.bindings, old)
	}
	previous, rebound := r.bindings[handle]
	if rebound && previous.name != name {
		delete(r.handles, previous.name)
	}
	r.bindings[handle] = binding{name: name, sink: sink}
	r.handles[name] = handle
	r.seen[name] = struct{}{}
	r.mu.Unlock()

	if evicted != nil {
		r.log.Info("Session replaced by a newer login", "user", name, "handle", handle)
		r.outbox.sessionReplaced(ctx, evicted)
	}
	if rebound && previous.name != name {
		if err := r.syncIdentity(previous.name); err != nil {
			r.log.Error("Failed to persist presence", "user", previous.name, "error", err)
		}
	}
	return r.syncIdentity(name)
}

// Unbind removes the binding of handle. It is a no-op for an unknown or
// already removed handle, which is what a stale connection closing after
// a newer login looks like.
func (r *PresenceRegistry) Unbind(handle chat.Handle) (name string, removed bool, err error) {
	r.mu.Lock()
	b, ok := r.bindings[handle]
	if ok {
		delete(r.bindings, handle)
		if r.handles[b.name] == handle {
			delete(r.handles, b.name)
		}
	}
	r.mu.Unlock()

	if !ok {
		return "", false, nil
	}
	return b.name, true, r.syncIdentity(b.name)
}

func (r *PresenceRegistry) Lookup(name string) (chat.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

func (r *PresenceRegistry) NameOf(handle chat.Handle) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[handle]
	return b.name, ok
}

func (r *PresenceRegistry) SinkOf(handle chat.Handle) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[handle]
	return b.sink, ok
}

// SinkFor returns the sink of name's live connection.
func (r *PresenceRegistry) SinkFor(name string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	if !ok {
		return nil, false
	}
	return r.bindings[h].sink, true
}

// Sinks returns the sinks of every bound connection except the given handle.
// Pass chat.NoHandle to get all of them.
func (r *PresenceRegistry) Sinks(except chat.Handle) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.bindings))
	for h, b := range r.bindings {
		if h != except {
			sinks = append(sinks, b.sink)
		}
	}
	return sinks
}

// Snapshot lists every name seen since start with its current status,
// ordered by name.
func (r *PresenceRegistry) Snapshot() []chat.RosterEntry {
	r.mu.RLock()
	roster := make([]chat.RosterEntry, 0, len(r.seen))
	for name := range r.seen {
		_, online := r.handles[name]
		roster = append(roster, chat.RosterEntry{Name: name, Online: online})
	}
	r.mu.RUnlock()

	sort.Slice(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })
	return roster
}

func (r *PresenceRegistry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// syncIdentity writes the registry's current view of name to the store.
func (r *PresenceRegistry) syncIdentity(name string) error {
	unlock := r.writes.Lock(name)
	defer unlock()

	identity, err := r.users.FindByName(name)
	if err != nil {
		return errors.Store(err)
	}

	handle, online := r.Lookup(name)
	switch {
	case online && identity.Online && identity.Handle == handle:
		return nil
	case online:
		identity = identity.GoOnline(handle, r.nowFunc())
	case !identity.Online && identity.Handle == chat.NoHandle:
		return nil
	default:
		identity = identity.GoOffline(r.nowFunc())
	}

	if err := r.users.Save(identity); err != nil {
		return errors.Store(err)
	}
	r.log.Debug("Presence persisted", "user", name, "online", identity.Online, "handle", identity.Handle)
	return nil
}
