package chat

// Command is an inbound event received from one connection.
type Command interface {
	Name() string
}

type LoginCommand struct {
	Username   string
	Credential string
}

func (LoginCommand) Name() string { return "login" }

type SendCommand struct {
	Recipient string
	Content   string
}

func (SendCommand) Name() string { return "send" }

type GetConversationCommand struct {
	WithUser string
}

func (GetConversationCommand) Name() string { return "getConversation" }

type TypingCommand struct {
	IsTyping bool
}

func (TypingCommand) Name() string { return "typing" }
