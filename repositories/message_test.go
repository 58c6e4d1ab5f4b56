package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"pairchat/domain/chat"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_And_Get_Conversation_In_Both_Directions(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	// Given messages between alice and bob in both directions
	// And a message between alice and clara
	messages := []chat.Message{
		chat.NewUserMessage("alice", "bob", "hi", at),
		chat.NewUserMessage("bob", "alice", "hello alice", at.Add(1*time.Second)),
		chat.NewUserMessage("alice", "clara", "not for bob", at.Add(2*time.Second)),
		chat.NewUserMessage("alice", "bob", "how are you?", at.Add(3*time.Second)),
	}
	for _, m := range messages {
		req.NoError(repository.Append(m))
	}

	// When fetching the conversation from both sides
	fromAlice, err := repository.Between("alice", "bob")
	req.NoError(err)
	fromBob, err := repository.Between("bob", "alice")
	req.NoError(err)

	// Then both sides see the same three messages, oldest first
	expected := []chat.Message{messages[0], messages[1], messages[3]}
	req.Equal(expected, fromAlice)
	req.Equal(expected, fromBob)
}

func Test_Between_Does_Not_Mix_Pairs_Sharing_A_Prefix(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	req.NoError(repository.Append(chat.NewUserMessage("ab", "c", "one", at)))
	req.NoError(repository.Append(chat.NewUserMessage("a", "bc", "two", at)))
	req.NoError(repository.Append(chat.NewUserMessage("ab", "cd", "three", at)))

	messages, err := repository.Between("ab", "c")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("one", messages[0].Content)
}

func Test_Recent_Global_Is_Ascending_And_Limited(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	var messages []chat.Message
	for i := 0; i < 5; i++ {
		m := chat.NewUserMessage("alice", fmt.Sprintf("user-%d", i), fmt.Sprintf("message %d", i), at.Add(time.Duration(i)*time.Minute))
		messages = append(messages, m)
	}
	// Stored out of order on purpose
	for _, i := range []int{3, 0, 4, 1, 2} {
		req.NoError(repository.Append(messages[i]))
	}

	recent, err := repository.RecentGlobal(3)
	req.NoError(err)
	req.Equal(messages[2:], recent)

	all, err := repository.RecentGlobal(100)
	req.NoError(err)
	req.Equal(messages, all)
}

func Test_Recent_Global_Includes_System_Messages(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	system := chat.Message{ID: uuid.New(), Kind: chat.KindSystem, Content: "maintenance tonight", CreatedAt: at}
	req.NoError(repository.Append(system))

	recent, err := repository.RecentGlobal(100)
	req.NoError(err)
	req.Equal([]chat.Message{system}, recent)
}

func Test_Empty_Store(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	recent, err := repository.RecentGlobal(100)
	req.NoError(err)
	req.Empty(recent)

	conversation, err := repository.Between("alice", "bob")
	req.NoError(err)
	req.Empty(conversation)

	none, err := repository.RecentGlobal(0)
	req.NoError(err)
	req.Nil(none)
}
