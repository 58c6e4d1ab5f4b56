//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"pairchat/domain/chat"
	"pairchat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound queue of one connection.
// Consume must never block the caller.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
}

// IIdentityStore is the durable user directory.
type IIdentityStore interface {
	Create(identity chat.Identity) error
	FindByName(name string) (chat.Identity, error)
	FindByHandle(handle chat.Handle) (chat.Identity, error)
	Save(identity chat.Identity) error
	List() ([]chat.Identity, error)
	ResetPresence(at time.Time) (int, error)
}

// IMessageStore is the durable, time-ordered message log.
type IMessageStore interface {
	Append(message chat.Message) error
	RecentGlobal(limit int) ([]chat.Message, error)
	Between(a, b string) ([]chat.Message, error)
}

// IMessageSearcher finds the messages of one user by their content,
// newest first.
type IMessageSearcher interface {
	Search(ctx context.Context, user, text string, limit int) ([]chat.Message, error)
}

// ICredentialVerifier checks a login credential against a stored identity.
type ICredentialVerifier interface {
	Verify(identity chat.Identity, credential string) bool
}
