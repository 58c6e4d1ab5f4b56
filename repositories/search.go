package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"pairchat/contract"
	"pairchat/domain/chat"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/search"
	"github.com/google/uuid"
)

const (
	fieldID          = "_id"
	fieldContent     = "content"
	fieldParticipant = "participant"
	fieldSender      = "sender"
	fieldRecipient   = "recipient"
	fieldCreated     = "created"
)

// SearchableMessageRepository indexes user messages in bluge once Badger
// has stored them. Badger stays the source of truth: an indexing failure
// is logged and the append still succeeds.
type SearchableMessageRepository struct {
	MessageRepository
	writer *bluge.Writer
	log    *slog.Logger
}

var (
	_ contract.IMessageStore    = SearchableMessageRepository{}
	_ contract.IMessageSearcher = SearchableMessageRepository{}
)

func NewSearchableMessageRepository(messages MessageRepository, writer *bluge.Writer, log *slog.Logger) SearchableMessageRepository {
	return SearchableMessageRepository{MessageRepository: messages, writer: writer, log: log}
}

func (s SearchableMessageRepository) Append(message chat.Message) error {
	if err := s.MessageRepository.Append(message); err != nil {
		return err
	}
	if message.Kind != chat.KindUser {
		return nil
	}
	if err := s.index(message); err != nil {
		s.log.Warn("Message indexing failed", "id", message.ID, "error", err)
	}
	return nil
}

func (s SearchableMessageRepository) index(message chat.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField(fieldContent, message.Content).StoreValue()).
		AddField(bluge.NewKeywordField(fieldParticipant, message.Sender)).
		AddField(bluge.NewKeywordField(fieldParticipant, message.Recipient)).
		AddField(bluge.NewKeywordField(fieldSender, message.Sender).StoreValue()).
		AddField(bluge.NewKeywordField(fieldRecipient, message.Recipient).StoreValue()).
		AddField(bluge.NewKeywordField(fieldCreated, fmt.Sprintf("%019d", message.CreatedAt.UnixNano())).StoreValue().Sortable())
	return s.writer.Update(doc.ID(), doc)
}

// Search returns at most limit messages sent or received by user whose
// content matches text, newest first.
func (s SearchableMessageRepository) Search(ctx context.Context, user, text string, limit int) ([]chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" || user == "" || limit <= 0 {
		return nil, nil
	}

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(text).SetField(fieldContent)).
		AddMust(bluge.NewTermQuery(user).SetField(fieldParticipant))
	request := bluge.NewTopNSearch(limit, query).SortBy([]string{"-" + fieldCreated})

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var messages []chat.Message
	match, err := iterator.Next()
	for err == nil && match != nil {
		message, decodeErr := decodeMatch(match)
		if decodeErr != nil {
			return nil, decodeErr
		}
		messages = append(messages, message)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return messages, nil
}

func decodeMatch(match *search.DocumentMatch) (chat.Message, error) {
	message := chat.Message{Kind: chat.KindUser}
	var fieldErr error
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case fieldID:
			message.ID, fieldErr = uuid.ParseBytes(value)
		case fieldContent:
			message.Content = string(value)
		case fieldSender:
			message.Sender = string(value)
		case fieldRecipient:
			message.Recipient = string(value)
		case fieldCreated:
			var nanos int64
			nanos, fieldErr = strconv.ParseInt(string(value), 10, 64)
			message.CreatedAt = fromUnixNano(nanos)
		}
		return fieldErr == nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	if fieldErr != nil {
		return chat.Message{}, fmt.Errorf("decoding indexed message: %w", fieldErr)
	}
	return message, nil
}
