package web

import (
	"encoding/json"
	"time"

	"pairchat/domain/chat"

	"github.com/samber/lo"
)

// Envelope is the frame carried by every WebSocket text message.
type Envelope struct {
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type loginPayload struct {
	Name       string `json:"name"`
	Credential string `json:"credential"`
}

type sendPayload struct {
	RecipientName string `json:"recipientName"`
	Content       string `json:"content"`
}

type conversationPayload struct {
	WithUser string `json:"withUser"`
}

type typingPayload struct {
	IsTyping *bool `json:"isTyping" validate:"required"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Sender    string    `json:"sender,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type RosterEntryResponse struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

type ConversationResponse struct {
	WithUser string            `json:"withUser"`
	Messages []MessageResponse `json:"messages"`
}

type TypingResponse struct {
	Handle   string `json:"handle"`
	Name     string `json:"name"`
	IsTyping bool   `json:"isTyping"`
}

type FailureResponse struct {
	Reason string `json:"reason"`
}

// HTTP

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type UserResponse struct {
	Name     string     `json:"name"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toMessageResponse(m chat.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID.String(),
		Kind:      string(m.Kind),
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toMessageResponses(messages []chat.Message) []MessageResponse {
	return lo.Map(messages, func(m chat.Message, _ int) MessageResponse {
		return toMessageResponse(m)
	})
}

func toUserResponse(identity chat.Identity) UserResponse {
	user := UserResponse{Name: identity.Name, Online: identity.Online}
	if !identity.LastSeen.IsZero() {
		user.LastSeen = lo.ToPtr(identity.LastSeen)
	}
	return user
}

func toUserResponses(identities []chat.Identity) []UserResponse {
	return lo.Map(identities, func(identity chat.Identity, _ int) UserResponse {
		return toUserResponse(identity)
	})
}
