package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/errors"

	"github.com/dgraph-io/badger/v4"
)

const (
	userPrefix   = "user:"
	handlePrefix = "handle:"
)

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

var _ contract.IIdentityStore = UserRepository{}

func NewUserRepository(db *badger.DB, log *slog.Logger) UserRepository {
	return UserRepository{db: db, log: log}
}

// DiskUser is the persisted form of an identity.
// Times are kept as unix nanoseconds so no precision is lost in CBOR.
type DiskUser struct {
	Name         string `cbor:"1,keyasint"`
	PasswordHash string `cbor:"2,keyasint"`
	Online       bool   `cbor:"3,keyasint"`
	LastSeen     int64  `cbor:"4,keyasint"`
	Handle       string `cbor:"5,keyasint,omitempty"`
	CreatedAt    int64  `cbor:"6,keyasint"`
}

// Create persists a brand-new identity.
// It fails with ErrUserAlreadyExists if the name is taken.
func (u UserRepository) Create(identity chat.Identity) error {
	data, err := marshal(fromIdentity(identity))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		key := userKey(identity.Name)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (u UserRepository) FindByName(name string) (chat.Identity, error) {
	var identity chat.Identity
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		identity, err = getUser(txn, name)
		return err
	})
	return identity, err
}

// FindByHandle resolves the identity currently bound to a connection handle
// through the handle index.
func (u UserRepository) FindByHandle(handle chat.Handle) (chat.Identity, error) {
	var identity chat.Identity
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(handleKey(handle))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		name, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		identity, err = getUser(txn, string(name))
		return err
	})
	return identity, err
}

// Save upserts the identity and keeps the handle index in step:
// the previous handle entry is dropped, the new one is written only
// while the identity is online.
func (u UserRepository) Save(identity chat.Identity) error {
	data, err := marshal(fromIdentity(identity))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		previous, err := getUser(txn, identity.Name)
		switch {
		case err == nil:
			if previous.Handle != chat.NoHandle && previous.Handle != identity.Handle {
				if err := txn.Delete(handleKey(previous.Handle)); err != nil {
					return err
				}
			}
		case !errors.Is(err, errors.ErrUserNotFound):
			return err
		}
		if identity.Online && identity.Handle != chat.NoHandle {
			if err := txn.Set(handleKey(identity.Handle), []byte(identity.Name)); err != nil {
				return err
			}
		}
		return txn.Set(userKey(identity.Name), data)
	})
}

// List returns every identity ordered by name.
func (u UserRepository) List() ([]chat.Identity, error) {
	var identities []chat.Identity
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var disk DiskUser
				if err := unmarshal(val, &disk); err != nil {
					return err
				}
				identities = append(identities, toIdentity(disk))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return identities, err
}

// ResetPresence marks every persisted identity offline.
// Run at boot: presence does not survive a restart.
func (u UserRepository) ResetPresence(at time.Time) (int, error) {
	identities, err := u.List()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, identity := range identities {
		if !identity.Online && identity.Handle == chat.NoHandle {
			continue
		}
		if err := u.Save(identity.GoOffline(at)); err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		u.log.Info("Stale presence cleared", "users", count)
	}
	return count, nil
}

func getUser(txn *badger.Txn, name string) (chat.Identity, error) {
	item, err := txn.Get(userKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Identity{}, errors.ErrUserNotFound
	}
	if err != nil {
		return chat.Identity{}, err
	}
	var disk DiskUser
	err = item.Value(func(val []byte) error {
		return unmarshal(val, &disk)
	})
	if err != nil {
		return chat.Identity{}, err
	}
	return toIdentity(disk), nil
}

func userKey(name string) []byte {
	return []byte(userPrefix + name)
}

func handleKey(handle chat.Handle) []byte {
	return []byte(handlePrefix + string(handle))
}

func fromIdentity(identity chat.Identity) DiskUser {
	return DiskUser{
		Name:         identity.Name,
		PasswordHash: identity.PasswordHash,
		Online:       identity.Online,
		LastSeen:     unixNano(identity.LastSeen),
		Handle:       string(identity.Handle),
		CreatedAt:    unixNano(identity.CreatedAt),
	}
}

func toIdentity(disk DiskUser) chat.Identity {
	return chat.Identity{
		Name:         disk.Name,
		PasswordHash: disk.PasswordHash,
		Online:       disk.Online,
		LastSeen:     fromUnixNano(disk.LastSeen),
		Handle:       chat.Handle(disk.Handle),
		CreatedAt:    fromUnixNano(disk.CreatedAt),
	}
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
