package repositories

import (
	"fmt"
	"log/slog"

	"pairchat/contract"
	"pairchat/domain/chat"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	messagePrefix = "msg:"
	pairPrefix    = "pair:"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

var _ contract.IMessageStore = MessageRepository{}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type DiskMessage struct {
	ID        string `cbor:"1,keyasint"`
	Kind      string `cbor:"2,keyasint"`
	Sender    string `cbor:"3,keyasint,omitempty"`
	Recipient string `cbor:"4,keyasint,omitempty"`
	Content   string `cbor:"5,keyasint"`
	At        int64  `cbor:"6,keyasint"`
}

// Append persists a message under two keys written in one transaction:
//  1. "msg:{timestamp_padded}:{uuid}" for the global timeline.
//  2. "pair:{len_a}:{len_b}:{a}{b}:{timestamp_padded}:{uuid}" for the
//     conversation of the (sorted) pair, user messages only.
//
// The 19-digit zero padding keeps lexicographical order chronological and
// the UUID breaks ties between messages of the same nanosecond.
func (m MessageRepository) Append(message chat.Message) error {
	data, err := marshal(fromMessage(message))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(globalKey(message), data); err != nil {
			return err
		}
		if message.Kind != chat.KindUser {
			return nil
		}
		return txn.Set(pairKey(message), data)
	})
}

// RecentGlobal returns the last limit messages of the whole system,
// oldest first.
func (m MessageRepository) RecentGlobal(limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	var messages []chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(messagePrefix)
		// Reverse iteration starts from the greatest key <= seek key
		seekKey := append([]byte(messagePrefix), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			message, err := readMessage(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

// Between returns every user message exchanged by a and b, oldest first.
func (m MessageRepository) Between(a, b string) ([]chat.Message, error) {
	var messages []chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := pairKeyPrefix(a, b)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			message, err := readMessage(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}

func readMessage(item *badger.Item) (chat.Message, error) {
	var disk DiskMessage
	err := item.Value(func(val []byte) error {
		return unmarshal(val, &disk)
	})
	if err != nil {
		return chat.Message{}, err
	}
	return toMessage(disk)
}

func globalKey(message chat.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix, message.CreatedAt.UnixNano(), message.ID))
}

func pairKey(message chat.Message) []byte {
	prefix := pairKeyPrefix(message.Sender, message.Recipient)
	return append(prefix, []byte(fmt.Sprintf("%019d:%s", message.CreatedAt.UnixNano(), message.ID))...)
}

// pairKeyPrefix is symmetric in a and b. Both lengths are encoded so two
// different pairs never share a prefix, whatever the names contain.
func pairKeyPrefix(a, b string) []byte {
	if b < a {
		a, b = b, a
	}
	return []byte(fmt.Sprintf("%s%d:%d:%s%s:", pairPrefix, len(a), len(b), a, b))
}

func fromMessage(message chat.Message) DiskMessage {
	return DiskMessage{
		ID:        message.ID.String(),
		Kind:      string(message.Kind),
		Sender:    message.Sender,
		Recipient: message.Recipient,
		Content:   message.Content,
		At:        message.CreatedAt.UnixNano(),
	}
}

func toMessage(disk DiskMessage) (chat.Message, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:        parsedID,
		Kind:      chat.Kind(disk.Kind),
		Sender:    disk.Sender,
		Recipient: disk.Recipient,
		Content:   disk.Content,
		CreatedAt: fromUnixNano(disk.At),
	}, nil
}
