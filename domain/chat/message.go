// Package chat contains the core concepts of the direct messaging system.
// Messages are immutable once built; identities are only mutated through
// the presence registry.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindUser   Kind = "user"
	KindSystem Kind = "system"
)

// Message represents an immutable directed communication.
type Message struct {
	ID        uuid.UUID
	Kind      Kind
	Sender    string
	Recipient string
	Content   string
	CreatedAt time.Time
}

// NewUserMessage builds a user-to-user message stamped with the server clock.
// Content is trimmed; validation is the caller's job.
func NewUserMessage(sender, recipient, content string, at time.Time) Message {
	return Message{
		ID:        uuid.New(),
		Kind:      KindUser,
		Sender:    sender,
		Recipient: recipient,
		Content:   strings.TrimSpace(content),
		CreatedAt: at.UTC(),
	}
}

// Involves reports whether the message was exchanged between a and b,
// in either direction.
func (m Message) Involves(a, b string) bool {
	return m.Kind == KindUser &&
		((m.Sender == a && m.Recipient == b) || (m.Sender == b && m.Recipient == a))
}
