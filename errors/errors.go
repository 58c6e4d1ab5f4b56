// Package errors declares the sentinel errors shared by every layer.
// Each failure class (auth, validation, store, protocol) has one root
// sentinel; the detailed errors wrap it so callers classify with Is.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// AuthError
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	// Signup
	ErrUserAlreadyExists = fmt.Errorf("username already exists")
	ErrInvalidPassword   = fmt.Errorf("password does not satisfy the rules")

	// ValidationError
	ErrValidation       = fmt.Errorf("validation error")
	ErrEmptyContent     = fmt.Errorf("%w: content is empty", ErrValidation)
	ErrContentTooLong   = fmt.Errorf("%w: content is too long", ErrValidation)
	ErrMissingRecipient = fmt.Errorf("%w: recipient is missing", ErrValidation)
	ErrMissingPeer      = fmt.Errorf("%w: conversation peer is missing", ErrValidation)

	// StoreError
	ErrStore = fmt.Errorf("store unavailable")

	// ProtocolError
	ErrProtocol             = fmt.Errorf("protocol error")
	ErrNotAuthenticated     = fmt.Errorf("%w: not authenticated", ErrProtocol)
	ErrAlreadyAuthenticated = fmt.Errorf("%w: already authenticated", ErrProtocol)
	ErrSessionClosed        = fmt.Errorf("%w: session closed", ErrProtocol)
	ErrUnknownEvent         = fmt.Errorf("%w: unknown event", ErrProtocol)
	ErrMalformedEvent       = fmt.Errorf("%w: malformed event", ErrProtocol)

	ErrSinkFull   = fmt.Errorf("connection queue is full")
	ErrSinkClosed = fmt.Errorf("connection queue is closed")
)

// Store wraps a storage failure so it is classified as a StoreError
// while keeping the cause for logs.
func Store(err error) error {
	if err == nil {
		return nil
	}
	if Is(err, ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
