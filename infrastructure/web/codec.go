package web

import (
	"encoding/json"
	"fmt"

	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// DecodeCommand turns one inbound frame into a command.
func DecodeCommand(raw []byte) (chat.Command, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.ErrMalformedEvent
	}
	if err := validate.Struct(envelope); err != nil {
		return nil, errors.ErrMalformedEvent
	}

	switch envelope.Type {
	case "login":
		var p loginPayload
		if err := decodePayload(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return chat.LoginCommand{Username: p.Name, Credential: p.Credential}, nil
	case "send":
		var p sendPayload
		if err := decodePayload(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return chat.SendCommand{Recipient: p.RecipientName, Content: p.Content}, nil
	case "getConversation":
		var p conversationPayload
		if err := decodePayload(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return chat.GetConversationCommand{WithUser: p.WithUser}, nil
	case "typing":
		var p typingPayload
		if err := decodePayload(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return chat.TypingCommand{IsTyping: *p.IsTyping}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, envelope.Type)
	}
}

func decodePayload(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return errors.ErrMalformedEvent
	}
	if err := validate.Struct(target); err != nil {
		return errors.ErrMalformedEvent
	}
	return nil
}

// EncodeEvent renders an outbound event as an envelope.
func EncodeEvent(e event.Outbound) ([]byte, error) {
	var payload any
	switch evt := e.(type) {
	case event.History:
		payload = toMessageResponses(evt.Messages)
	case event.OnlineRoster:
		payload = lo.Map(evt.Users, func(entry chat.RosterEntry, _ int) RosterEntryResponse {
			return RosterEntryResponse{Name: entry.Name, Online: entry.Online}
		})
	case event.Conversation:
		payload = ConversationResponse{WithUser: evt.WithUser, Messages: toMessageResponses(evt.Messages)}
	case event.MessageDelivered:
		payload = toMessageResponse(evt.Message)
	case event.TypingUpdate:
		payload = TypingResponse{Handle: string(evt.Handle), Name: evt.Name, IsTyping: evt.IsTyping}
	case event.Failure:
		payload = FailureResponse{Reason: evt.Reason}
	default:
		return nil, fmt.Errorf("no encoding for event %q", e.Type())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: string(e.Type()), Payload: raw})
}
