package runtime

import (
	"context"

	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"
)

// TypingBroadcaster fans typing state out to every other connection.
// Nothing is stored and updates are not coalesced.
type TypingBroadcaster struct {
	presence       *PresenceRegistry
	outbox         *outbox
	allowAnonymous bool
}

func newTypingBroadcaster(presence *PresenceRegistry, allowAnonymous bool) *TypingBroadcaster {
	return &TypingBroadcaster{presence: presence, outbox: presence.outbox, allowAnonymous: allowAnonymous}
}

// SetTyping broadcasts the state of handle. An unbound handle is sent with
// an empty name if anonymous typing is allowed, rejected otherwise.
func (t *TypingBroadcaster) SetTyping(ctx context.Context, handle chat.Handle, isTyping bool) error {
	name, ok := t.presence.NameOf(handle)
	if !ok && !t.allowAnonymous {
		return errors.ErrNotAuthenticated
	}
	t.broadcast(ctx, handle, name, isTyping)
	return nil
}

func (t *TypingBroadcaster) broadcast(ctx context.Context, handle chat.Handle, name string, isTyping bool) {
	t.outbox.monitor.TypingUpdated()
	t.outbox.broadcast(ctx, t.presence.Sinks(handle), event.TypingUpdate{
		Handle:   handle,
		Name:     name,
		IsTyping: isTyping,
	})
}
