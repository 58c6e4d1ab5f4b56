package web

import (
	"encoding/json"
	"testing"
	"time"

	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want chat.Command
	}{
		{"login", `{"type":"login","payload":{"name":"alice","credential":"secret"}}`, chat.LoginCommand{Username: "alice", Credential: "secret"}},
		{"send", `{"type":"send","payload":{"recipientName":"bob","content":"hi"}}`, chat.SendCommand{Recipient: "bob", Content: "hi"}},
		{"conversation", `{"type":"getConversation","payload":{"withUser":"bob"}}`, chat.GetConversationCommand{WithUser: "bob"}},
		{"typing on", `{"type":"typing","payload":{"isTyping":true}}`, chat.TypingCommand{IsTyping: true}},
		{"typing off", `{"type":"typing","payload":{"isTyping":false}}`, chat.TypingCommand{IsTyping: false}},
		{"send without payload", `{"type":"send"}`, chat.SendCommand{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, cmd)
		})
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `hello`, errors.ErrMalformedEvent},
		{"no type", `{"payload":{}}`, errors.ErrMalformedEvent},
		{"unknown type", `{"type":"dance"}`, errors.ErrUnknownEvent},
		{"payload of wrong shape", `{"type":"send","payload":[1,2]}`, errors.ErrMalformedEvent},
		{"typing without state", `{"type":"typing","payload":{}}`, errors.ErrMalformedEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(tt.raw))
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, errors.ErrProtocol)
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := chat.Message{ID: uuid.New(), Kind: chat.KindUser, Sender: "alice", Recipient: "bob", Content: "hi", CreatedAt: at}

	raw, err := EncodeEvent(event.MessageDelivered{Message: msg})
	req.NoError(err)

	var envelope struct {
		Type    string          `json:"type"`
		Payload MessageResponse `json:"payload"`
	}
	req.NoError(json.Unmarshal(raw, &envelope))
	req.Equal("message", envelope.Type)
	req.Equal(msg.ID.String(), envelope.Payload.ID)
	req.Equal("alice", envelope.Payload.Sender)
	req.True(at.Equal(envelope.Payload.CreatedAt))

	raw, err = EncodeEvent(event.History{})
	req.NoError(err)
	req.JSONEq(`{"type":"history","payload":[]}`, string(raw))

	raw, err = EncodeEvent(event.OnlineRoster{Users: []chat.RosterEntry{{Name: "alice", Online: true}, {Name: "bob"}}})
	req.NoError(err)
	req.JSONEq(`{"type":"onlineRoster","payload":[{"name":"alice","online":true},{"name":"bob","online":false}]}`, string(raw))

	raw, err = EncodeEvent(event.TypingUpdate{Handle: "h1", IsTyping: true})
	req.NoError(err)
	req.JSONEq(`{"type":"typingUpdate","payload":{"handle":"h1","name":"","isTyping":true}}`, string(raw))

	raw, err = EncodeEvent(event.FailureFor(errors.ErrInvalidCredentials))
	req.NoError(err)
	req.JSONEq(`{"type":"authFailure","payload":{"reason":"Invalid username or password"}}`, string(raw))
}
