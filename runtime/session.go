package runtime

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"
)

type State int

const (
	Connected State = iota
	Authenticated
	Closed
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Authenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Session is the state machine of one connection:
// Connected -> Authenticated -> Closed.
type Session struct {
	mu     sync.Mutex
	handle chat.Handle
	sink   contract.EventSink
	state  State
	engine *Engine
	log    *slog.Logger
}

func (s *Session) Handle() chat.Handle {
	return s.handle
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch runs one inbound command. A failing command is reported to
// this connection as a failure event and returned to the caller; it never
// ends the session.
func (s *Session) Dispatch(ctx context.Context, cmd chat.Command) error {
	var err error
	switch c := cmd.(type) {
	case chat.LoginCommand:
		err = s.Login(ctx, c)
	case chat.SendCommand:
		err = s.Send(ctx, c)
	case chat.GetConversationCommand:
		err = s.GetConversation(ctx, c)
	case chat.TypingCommand:
		err = s.SetTyping(ctx, c)
	default:
		err = errors.ErrUnknownEvent
	}
	if err != nil {
		s.Fail(ctx, err)
	}
	return err
}

// Fail reports err to this connection only.
func (s *Session) Fail(ctx context.Context, err error) {
	failure := event.FailureFor(err)
	s.engine.monitor.Failure()
	if failure.Kind == event.StoreFailureType {
		s.log.Error("Command failed", "error", err)
	} else {
		s.log.Debug("Command rejected", "kind", failure.Kind, "error", err)
	}
	s.engine.presence.outbox.send(ctx, s.sink, failure)
}

// Login authenticates the connection. A wrong credential leaves the
// session Connected and the registry untouched, so the client may retry.
func (s *Session) Login(ctx context.Context, cmd chat.LoginCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Authenticated:
		return errors.ErrAlreadyAuthenticated
	case Closed:
		return errors.ErrSessionClosed
	}

	identity, err := s.engine.users.FindByName(cmd.Username)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			s.engine.monitor.LoginFailed()
			return errors.ErrInvalidCredentials
		}
		return errors.Store(err)
	}
	if !s.engine.verifier.Verify(identity, cmd.Credential) {
		s.engine.monitor.LoginFailed()
		return errors.ErrInvalidCredentials
	}

	bindErr := s.engine.presence.Bind(ctx, s.handle, identity.Name, s.sink)
	s.state = Authenticated
	s.log = s.log.With("user", identity.Name)
	s.engine.monitor.LoginSucceeded()
	s.log.Info("User logged in")

	if bindErr != nil {
		// The registry holds the binding, only the stored presence lags
		s.Fail(ctx, bindErr)
	}

	history, err := s.engine.RecentMessages()
	if err != nil {
		s.Fail(ctx, err)
	} else {
		s.engine.presence.outbox.send(ctx, s.sink, event.History{Messages: history})
	}
	s.engine.BroadcastRoster(ctx)
	return nil
}

func (s *Session) Send(ctx context.Context, cmd chat.SendCommand) error {
	if err := s.requireAuthenticated(); err != nil {
		return err
	}
	_, err := s.engine.router.Route(ctx, s.handle, cmd.Recipient, cmd.Content)
	return err
}

// GetConversation replies with every message between this user and
// cmd.WithUser, oldest first.
func (s *Session) GetConversation(ctx context.Context, cmd chat.GetConversationCommand) error {
	if err := s.requireAuthenticated(); err != nil {
		return err
	}
	name, ok := s.engine.presence.NameOf(s.handle)
	if !ok {
		return errors.ErrNotAuthenticated
	}
	peer := strings.TrimSpace(cmd.WithUser)
	if peer == "" {
		return errors.ErrMissingPeer
	}

	messages, err := s.engine.messages.Between(name, peer)
	if err != nil {
		return errors.Store(err)
	}
	s.engine.presence.outbox.send(ctx, s.sink, event.Conversation{WithUser: peer, Messages: messages})
	return nil
}

// SetTyping is the one command open to a connection that has not logged
// in yet.
func (s *Session) SetTyping(ctx context.Context, cmd chat.TypingCommand) error {
	if err := s.requireAuthenticated(); err != nil && !errors.Is(err, errors.ErrNotAuthenticated) {
		return err
	}
	return s.engine.typing.SetTyping(ctx, s.handle, cmd.IsTyping)
}

// Disconnect moves the session to Closed and unbinds it exactly once.
// Calling it again does nothing.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	previous := s.state
	s.state = Closed
	s.mu.Unlock()

	if previous != Authenticated {
		return
	}

	name, removed, err := s.engine.presence.Unbind(s.handle)
	if err != nil {
		s.log.Error("Failed to persist presence", "error", err)
	}
	if !removed {
		// Replaced by a newer connection, which owns the binding now
		return
	}
	s.log.Info("User disconnected")

	if s.engine.options.ClearTypingOnDisconnect {
		s.engine.typing.broadcast(ctx, s.handle, name, false)
	}
	s.engine.BroadcastRoster(ctx)
}

// requireAuthenticated closes a session whose binding was taken over by
// a newer login of the same user.
func (s *Session) requireAuthenticated() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Authenticated:
		if _, bound := s.engine.presence.NameOf(s.handle); !bound {
			s.state = Closed
			return errors.ErrSessionClosed
		}
		return nil
	case Closed:
		return errors.ErrSessionClosed
	default:
		return errors.ErrNotAuthenticated
	}
}
