package event

import (
	"pairchat/errors"
)

const (
	reasonInvalidCredentials = "Invalid username or password"
	reasonStore              = "Operation failed, please retry"
	reasonReplaced           = "Signed in from another connection"
)

// FailureFor maps an error to the failure event reported to the
// triggering connection. Store and unknown errors get a generic reason.
func FailureFor(err error) Failure {
	switch {
	case errors.Is(err, errors.ErrInvalidCredentials):
		return Failure{Kind: AuthFailureType, Reason: reasonInvalidCredentials}
	case errors.Is(err, errors.ErrValidation):
		return Failure{Kind: SendFailureType, Reason: err.Error()}
	case errors.Is(err, errors.ErrProtocol):
		return Failure{Kind: ProtocolFailureType, Reason: err.Error()}
	default:
		return Failure{Kind: StoreFailureType, Reason: reasonStore}
	}
}

func SessionReplaced() Failure {
	return Failure{Kind: SessionReplacedType, Reason: reasonReplaced}
}
