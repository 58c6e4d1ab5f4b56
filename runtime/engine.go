// Package runtime binds connections to identities, keeps presence,
// routes direct messages and fans out typing state.
// It holds no transport code: connections are reached through their sinks.
package runtime

import (
	"context"
	"log/slog"

	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/moderation"
	"pairchat/observability"
)

type Options struct {
	HistoryLimit            int
	MaxContentLength        int
	AllowAnonymousTyping    bool
	ClearTypingOnDisconnect bool
	// ContentFilter masks blocked words before a message is stored. Nil disables it.
	ContentFilter *moderation.Filter
}

// MaxHistory bounds the history event pushed on login.
const MaxHistory = 100

func DefaultOptions() Options {
	return Options{
		HistoryLimit:            MaxHistory,
		MaxContentLength:        2000,
		AllowAnonymousTyping:    true,
		ClearTypingOnDisconnect: true,
	}
}

// Engine wires the presence registry, the router and the typing
// broadcaster around the stores. One Engine serves every connection.
type Engine struct {
	log      *slog.Logger
	users    contract.IIdentityStore
	messages contract.IMessageStore
	verifier contract.ICredentialVerifier
	monitor  *observability.Monitor
	presence *PresenceRegistry
	router   *Router
	typing   *TypingBroadcaster
	options  Options
}

func NewEngine(
	log *slog.Logger,
	users contract.IIdentityStore,
	messages contract.IMessageStore,
	verifier contract.ICredentialVerifier,
	monitor *observability.Monitor,
	options Options,
) *Engine {
	if options.HistoryLimit < 1 || options.HistoryLimit > MaxHistory {
		options.HistoryLimit = MaxHistory
	}
	presence := NewPresenceRegistry(users, monitor, log)
	return &Engine{
		log:      log,
		users:    users,
		messages: messages,
		verifier: verifier,
		monitor:  monitor,
		presence: presence,
		router:   newRouter(presence, messages, log, options.MaxContentLength, options.ContentFilter),
		typing:   newTypingBroadcaster(presence, options.AllowAnonymousTyping),
		options:  options,
	}
}

// NewSession starts the lifecycle of a freshly accepted connection.
func (e *Engine) NewSession(handle chat.Handle, sink contract.EventSink) *Session {
	return &Session{
		handle: handle,
		sink:   sink,
		state:  Connected,
		engine: e,
		log:    e.log.With("handle", handle),
	}
}

func (e *Engine) Presence() *PresenceRegistry {
	return e.presence
}

// RecentMessages returns the latest messages system-wide, oldest first.
func (e *Engine) RecentMessages() ([]chat.Message, error) {
	msgs, err := e.messages.RecentGlobal(e.options.HistoryLimit)
	if err != nil {
		return nil, errors.Store(err)
	}
	return msgs, nil
}

func (e *Engine) Stats() observability.Stats {
	return e.monitor.Snapshot(e.presence.OnlineCount())
}

// BroadcastRoster pushes the current roster to every bound connection.
func (e *Engine) BroadcastRoster(ctx context.Context) {
	e.presence.outbox.broadcast(ctx, e.presence.Sinks(chat.NoHandle), event.OnlineRoster{
		Users: e.presence.Snapshot(),
	})
}
