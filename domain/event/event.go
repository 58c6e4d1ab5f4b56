// Package event defines the outbound events pushed to a connection.
package event

import (
	"pairchat/domain/chat"
)

type Type string

const (
	HistoryType         Type = "history"
	OnlineRosterType    Type = "onlineRoster"
	ConversationType    Type = "conversation"
	MessageType         Type = "message"
	TypingUpdateType    Type = "typingUpdate"
	AuthFailureType     Type = "authFailure"
	SendFailureType     Type = "sendFailure"
	StoreFailureType    Type = "storeFailure"
	ProtocolFailureType Type = "protocolFailure"
	SessionReplacedType Type = "sessionReplaced"
)

// Outbound is anything a sink can deliver to a connection.
type Outbound interface {
	Type() Type
}

// History is the global recent history pushed right after login.
type History struct {
	Messages []chat.Message
}

func (History) Type() Type { return HistoryType }

type OnlineRoster struct {
	Users []chat.RosterEntry
}

func (OnlineRoster) Type() Type { return OnlineRosterType }

// Conversation answers a getConversation request.
type Conversation struct {
	WithUser string
	Messages []chat.Message
}

func (Conversation) Type() Type { return ConversationType }

type MessageDelivered struct {
	Message chat.Message
}

func (MessageDelivered) Type() Type { return MessageType }

// TypingUpdate carries the typing state of another connection.
// Name is empty when the typer is not authenticated.
type TypingUpdate struct {
	Handle   chat.Handle
	Name     string
	IsTyping bool
}

func (TypingUpdate) Type() Type { return TypingUpdateType }

// Failure is reported to the triggering connection only.
// Reason never carries internal error detail.
type Failure struct {
	Kind   Type
	Reason string
}

func (f Failure) Type() Type { return f.Kind }
