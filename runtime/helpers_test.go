package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/observability"
	"pairchat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// recordingSink keeps every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []event.Outbound
}

func (s *recordingSink) Consume(_ context.Context, e event.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) ofType(t event.Type) []event.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Outbound
	for _, e := range s.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) last(t event.Type) event.Outbound {
	all := s.ofType(t)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// plainVerifier accepts the credential stored verbatim as the hash.
type plainVerifier struct{}

func (plainVerifier) Verify(identity chat.Identity, credential string) bool {
	return credential != "" && identity.PasswordHash == credential
}

type fixture struct {
	engine   *Engine
	users    contract.IIdentityStore
	messages contract.IMessageStore
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func openDB(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFixture(t *testing.T, options Options) *fixture {
	db := openDB(t)
	log := testLogger()
	return newFixtureWith(t, repositories.NewUserRepository(db, log), repositories.NewMessageRepository(db, log), options)
}

func newFixtureWith(t *testing.T, users contract.IIdentityStore, messages contract.IMessageStore, options Options) *fixture {
	log := testLogger()
	return &fixture{
		engine:   NewEngine(log, users, messages, plainVerifier{}, observability.NewMonitor(log), options),
		users:    users,
		messages: messages,
	}
}

// signup registers names whose password is "pw-<name>".
func (f *fixture) signup(t *testing.T, names ...string) {
	for _, name := range names {
		require.NoError(t, f.users.Create(chat.Identity{Name: name, PasswordHash: "pw-" + name}))
	}
}

func (f *fixture) connect() (*Session, *recordingSink) {
	sink := &recordingSink{}
	return f.engine.NewSession(chat.Handle(uuid.NewString()), sink), sink
}

func (f *fixture) login(t *testing.T, name string) (*Session, *recordingSink) {
	session, sink := f.connect()
	require.NoError(t, session.Dispatch(context.Background(), chat.LoginCommand{Username: name, Credential: "pw-" + name}))
	return session, sink
}

func failureKinds(sink *recordingSink) []event.Type {
	var kinds []event.Type
	for _, t := range []event.Type{event.AuthFailureType, event.SendFailureType, event.StoreFailureType, event.ProtocolFailureType, event.SessionReplacedType} {
		for range sink.ofType(t) {
			kinds = append(kinds, t)
		}
	}
	return kinds
}
