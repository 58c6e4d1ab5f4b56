package repositories

import (
	"log/slog"
	"testing"
	"time"

	"pairchat/domain/chat"
	"pairchat/errors"

	"github.com/stretchr/testify/require"
)

func Test_Create_And_Find_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), slog.Default())
	createdAt := time.Now().UTC()

	// Given a new user
	alice := chat.Identity{Name: "alice", PasswordHash: "$argon2id$hash", CreatedAt: createdAt, LastSeen: createdAt}
	req.NoError(repository.Create(alice))

	// When looking it up
	found, err := repository.FindByName("alice")

	// Then it is offline and has no handle
	req.NoError(err)
	req.Equal(alice, found)
	req.False(found.Online)
	req.Equal(chat.NoHandle, found.Handle)

	// And the name cannot be taken twice
	req.ErrorIs(repository.Create(alice), errors.ErrUserAlreadyExists)
}

func Test_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), slog.Default())

	_, err := repository.FindByName("nobody")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.FindByHandle("no-such-handle")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_Save_Keeps_Handle_Index_In_Step(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), slog.Default())
	now := time.Now().UTC()
	req.NoError(repository.Create(chat.Identity{Name: "alice", CreatedAt: now}))

	// Given alice comes online on h1
	alice, err := repository.FindByName("alice")
	req.NoError(err)
	req.NoError(repository.Save(alice.GoOnline("h1", now)))

	found, err := repository.FindByHandle("h1")
	req.NoError(err)
	req.Equal("alice", found.Name)
	req.True(found.Online)

	// When she reconnects on h2
	req.NoError(repository.Save(found.GoOnline("h2", now.Add(time.Second))))

	// Then h1 no longer resolves
	_, err = repository.FindByHandle("h1")
	req.ErrorIs(err, errors.ErrUserNotFound)
	found, err = repository.FindByHandle("h2")
	req.NoError(err)
	req.Equal("alice", found.Name)

	// When she goes offline
	req.NoError(repository.Save(found.GoOffline(now.Add(2 * time.Second))))

	// Then no handle resolves and last seen is stamped
	_, err = repository.FindByHandle("h2")
	req.ErrorIs(err, errors.ErrUserNotFound)
	offline, err := repository.FindByName("alice")
	req.NoError(err)
	req.False(offline.Online)
	req.Equal(now.Add(2*time.Second), offline.LastSeen)
}

func Test_List_And_Reset_Presence(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), slog.Default())
	now := time.Now().UTC()

	for _, name := range []string{"carol", "alice", "bob"} {
		req.NoError(repository.Create(chat.Identity{Name: name, CreatedAt: now}))
	}
	bob, err := repository.FindByName("bob")
	req.NoError(err)
	req.NoError(repository.Save(bob.GoOnline("h-bob", now)))

	// Given a crash left bob online
	users, err := repository.List()
	req.NoError(err)
	req.Equal([]string{"alice", "bob", "carol"}, []string{users[0].Name, users[1].Name, users[2].Name})
	req.True(users[1].Online)

	// When the process boots again
	count, err := repository.ResetPresence(now.Add(time.Minute))

	// Then every user is offline
	req.NoError(err)
	req.Equal(1, count)
	users, err = repository.List()
	req.NoError(err)
	for _, u := range users {
		req.False(u.Online)
		req.Equal(chat.NoHandle, u.Handle)
	}
	_, err = repository.FindByHandle("h-bob")
	req.ErrorIs(err, errors.ErrUserNotFound)
}
