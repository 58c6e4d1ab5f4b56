package services

import (
	"fmt"
	"log/slog"
	"time"

	"pairchat/auth"
	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/errors"
)

type IAuthService interface {
	Register(username, password string) (Token, error)
	Login(username, password string) (Token, error)
}

type AuthService struct {
	users  contract.IIdentityStore
	tokens auth.TokenIssuer
	params auth.Argon2Params
	log    *slog.Logger
}

type Token string

func (t Token) String() string {
	return string(t)
}

func NewAuthService(users contract.IIdentityStore, tokens auth.TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, params: auth.DefaultParams, log: log}
}

// Register validates the signup rules, stores the account offline and
// returns a first token so the client can open its connection right away.
func (s *AuthService) Register(username, password string) (Token, error) {
	if err := auth.ValidateSignup(auth.SignupRequest{Username: username, Password: password}); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	hash, err := s.params.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	identity := chat.Identity{
		Name:         username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(identity); err != nil {
		if errors.Is(err, errors.ErrUserAlreadyExists) {
			return "", err
		}
		return "", errors.Store(err)
	}
	s.log.Info("User registered", "username", username)

	return s.issue(username)
}

func (s *AuthService) Login(username, password string) (Token, error) {
	identity, err := s.users.FindByName(username)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return "", errors.ErrInvalidCredentials
		}
		return "", errors.Store(err)
	}

	match, err := auth.ComparePassword(password, identity.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	return s.issue(identity.Name)
}

func (s *AuthService) issue(username string) (Token, error) {
	token, err := s.tokens.Generate(username)
	if err != nil {
		s.log.Error("Token generation failed", "username", username, "error", err)
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
