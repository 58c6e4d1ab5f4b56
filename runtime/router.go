package runtime

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/moderation"
)

// Router persists a direct message and delivers it to both ends.
type Router struct {
	presence         *PresenceRegistry
	messages         contract.IMessageStore
	outbox           *outbox
	log              *slog.Logger
	maxContentLength int
	filter           *moderation.Filter
	nowFunc          func() time.Time
}

func newRouter(presence *PresenceRegistry, messages contract.IMessageStore, log *slog.Logger, maxContentLength int, filter *moderation.Filter) *Router {
	return &Router{
		presence:         presence,
		messages:         messages,
		outbox:           presence.outbox,
		log:              log,
		maxContentLength: maxContentLength,
		filter:           filter,
		nowFunc:          time.Now,
	}
}

// Route validates, appends then delivers. Nothing is delivered when the
// append fails. The recipient does not have to exist nor be online.
func (r *Router) Route(ctx context.Context, sender chat.Handle, recipient, content string) (chat.Message, error) {
	senderName, ok := r.presence.NameOf(sender)
	if !ok {
		return chat.Message{}, errors.ErrNotAuthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return chat.Message{}, errors.ErrEmptyContent
	}
	if r.maxContentLength > 0 && utf8.RuneCountInString(content) > r.maxContentLength {
		return chat.Message{}, errors.ErrContentTooLong
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return chat.Message{}, errors.ErrMissingRecipient
	}

	content, blocked := r.filter.Mask(content)
	if len(blocked) > 0 {
		r.log.Warn("Blocked words masked",
			"sender", senderName,
			"words", len(blocked),
			"lang", moderation.Language(content))
	}

	msg := chat.NewUserMessage(senderName, recipient, content, r.nowFunc())
	if err := r.messages.Append(msg); err != nil {
		return chat.Message{}, errors.Store(err)
	}
	r.outbox.monitor.MessageRouted()

	delivered := event.MessageDelivered{Message: msg}
	if sink, online := r.presence.SinkFor(recipient); online {
		r.outbox.send(ctx, sink, delivered)
	}
	if recipient != senderName {
		// The sender may have disconnected while the message was persisted
		if sink, ok := r.presence.SinkOf(sender); ok {
			r.outbox.send(ctx, sink, delivered)
		}
	}
	r.log.Debug("Message routed", "id", msg.ID, "sender", senderName, "recipient", recipient)
	return msg, nil
}
