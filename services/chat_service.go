package services

import (
	"context"
	"strings"

	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/errors"
	"pairchat/observability"
	"pairchat/runtime"

	"github.com/samber/lo"
)

// IChatService answers the read-only HTTP queries.
type IChatService interface {
	OnlineUsers() ([]chat.Identity, error)
	AllUsers() ([]chat.Identity, error)
	FindUser(name string) (chat.Identity, error)
	RecentMessages() ([]chat.Message, error)
	Search(ctx context.Context, user, text string, limit int) ([]chat.Message, error)
	Stats() observability.Stats
}

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

type ChatService struct {
	engine   *runtime.Engine
	users    contract.IIdentityStore
	searcher contract.IMessageSearcher
}

func NewChatService(engine *runtime.Engine, users contract.IIdentityStore, searcher contract.IMessageSearcher) *ChatService {
	return &ChatService{engine: engine, users: users, searcher: searcher}
}

// AllUsers lists every account. The online flag comes from the presence
// registry, which the stored flag may briefly lag behind.
func (s *ChatService) AllUsers() ([]chat.Identity, error) {
	identities, err := s.users.List()
	if err != nil {
		return nil, errors.Store(err)
	}
	presence := s.engine.Presence()
	return lo.Map(identities, func(identity chat.Identity, _ int) chat.Identity {
		handle, online := presence.Lookup(identity.Name)
		identity.Online = online
		identity.Handle = handle
		return identity
	}), nil
}

func (s *ChatService) OnlineUsers() ([]chat.Identity, error) {
	all, err := s.AllUsers()
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(identity chat.Identity, _ int) bool {
		return identity.Online
	}), nil
}

func (s *ChatService) FindUser(name string) (chat.Identity, error) {
	identity, err := s.users.FindByName(name)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return chat.Identity{}, err
		}
		return chat.Identity{}, errors.Store(err)
	}
	handle, online := s.engine.Presence().Lookup(name)
	identity.Online = online
	identity.Handle = handle
	return identity, nil
}

func (s *ChatService) RecentMessages() ([]chat.Message, error) {
	return s.engine.RecentMessages()
}

func (s *ChatService) Stats() observability.Stats {
	return s.engine.Stats()
}

// Search looks for text in the conversations user takes part in.
// limit falls back to DefaultSearchLimit and is capped at MaxSearchLimit.
func (s *ChatService) Search(ctx context.Context, user, text string, limit int) ([]chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.ErrEmptyContent
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	messages, err := s.searcher.Search(ctx, user, text, limit)
	if err != nil {
		return nil, errors.Store(err)
	}
	return messages, nil
}
