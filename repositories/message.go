package repositories

import (
	"estate-match/domain"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	CreateMessage(txn *badger.Txn, message domain.Message) (domain.Message, error)
	SaveMessage(txn *badger.Txn, message domain.Message) error
	GetMessage(txn *badger.Txn, id string) (domain.Message, error)
	ListMessages(txn *badger.Txn, conversationID string) ([]domain.Message, error)
	PageMessages(txn *badger.Txn, conversationID string, cursor *string, limit int) ([]domain.Message, *string, error)
	LastMessage(txn *badger.Txn, conversationID string) (*domain.Message, error)
	UnreadCount(txn *badger.Txn, conversationID, userID string) (int, error)
	MarkAllRead(txn *badger.Txn, conversationID, userID string, now time.Time) ([]domain.Message, error)
}

type MessageRepository struct{}

func NewMessageRepository() IMessageRepository {
	return MessageRepository{}
}

type DiskMessage struct {
	ID             string `cbor:"id"`
	ConversationID string `cbor:"conversation_id"`
	SenderID       string `cbor:"sender_id"`
	Content        string `cbor:"content"`
	ReadAt         int64  `cbor:"read_at,omitempty"`
	CreatedAt      int64  `cbor:"created_at"`
}

func messagePrefix(conversationID string) string {
	return fmt.Sprintf("msg:%s:", conversationID)
}

// messageKey is formatted as "msg:{conversation_id}:{timestamp_padded}:{uuid}".
// The 19-digit padding keeps lexicographic order chronological and the uuid
// separates two messages written in the same nanosecond.
func messageKey(m domain.Message) string {
	return fmt.Sprintf("%s%019d:%s", messagePrefix(m.ConversationID), m.CreatedAt.UnixNano(), m.ID)
}

func messageIDKey(id string) string { return "msgid:" + id }

func (r MessageRepository) CreateMessage(txn *badger.Txn, message domain.Message) (domain.Message, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	key := messageKey(message)
	if err := txn.Set([]byte(messageIDKey(message.ID)), []byte(key)); err != nil {
		return domain.Message{}, err
	}
	return message, put(txn, key, fromMessage(message))
}

func (r MessageRepository) SaveMessage(txn *badger.Txn, message domain.Message) error {
	return put(txn, messageKey(message), fromMessage(message))
}

func (r MessageRepository) GetMessage(txn *badger.Txn, id string) (domain.Message, error) {
	key, err := getString(txn, messageIDKey(id))
	if err != nil {
		return domain.Message{}, err
	}
	var disk DiskMessage
	if err = get(txn, key, &disk); err != nil {
		return domain.Message{}, err
	}
	return toMessage(disk), nil
}

// ListMessages returns the whole conversation in chronological order.
func (r MessageRepository) ListMessages(txn *badger.Txn, conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := scanPrefix(txn, messagePrefix(conversationID), func(_ string, val []byte) error {
		var disk DiskMessage
		if err := decode(val, &disk); err != nil {
			return err
		}
		messages = append(messages, toMessage(disk))
		return nil
	})
	return messages, err
}

// PageMessages walks the conversation backwards from cursor, newest first.
// A nil cursor starts from the latest message. The returned cursor is the
// suffix of the last key read and is nil once the page comes back short.
func (r MessageRepository) PageMessages(txn *badger.Txn, conversationID string, cursor *string, limit int) ([]domain.Message, *string, error) {
	prefixStr := messagePrefix(conversationID)
	prefix := []byte(prefixStr)
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	it := txn.NewIterator(options)
	defer it.Close()

	var seekKey []byte
	switch cursor {
	case nil:
		seekKey = append([]byte(prefixStr), []byte("9999999999999999999")...)
	default:
		seekKey = append([]byte(prefixStr), []byte(*cursor)...)
	}
	it.Seek(seekKey)
	if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
		it.Next()
	}

	var messages []domain.Message
	var lastKey string
	for ; it.ValidForPrefix(prefix); it.Next() {
		if limit > 0 && len(messages) == limit {
			break
		}
		item := it.Item()
		lastKey = string(item.Key()[len(prefix):])
		err := item.Value(func(val []byte) error {
			var disk DiskMessage
			if err := decode(val, &disk); err != nil {
				return err
			}
			messages = append(messages, toMessage(disk))
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	if limit <= 0 || len(messages) < limit {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// LastMessage returns nil for an empty conversation.
func (r MessageRepository) LastMessage(txn *badger.Txn, conversationID string) (*domain.Message, error) {
	messages, _, err := r.PageMessages(txn, conversationID, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return lo.ToPtr(messages[0]), nil
}

func (r MessageRepository) UnreadCount(txn *badger.Txn, conversationID, userID string) (int, error) {
	messages, err := r.ListMessages(txn, conversationID)
	if err != nil {
		return 0, err
	}
	return lo.CountBy(messages, func(m domain.Message) bool { return m.UnreadFor(userID) }), nil
}

// MarkAllRead stamps every message userID did not send and has not read yet.
// It returns the messages it changed.
func (r MessageRepository) MarkAllRead(txn *badger.Txn, conversationID, userID string, now time.Time) ([]domain.Message, error) {
	messages, err := r.ListMessages(txn, conversationID)
	if err != nil {
		return nil, err
	}
	var marked []domain.Message
	for _, m := range messages {
		if !m.UnreadFor(userID) {
			continue
		}
		m.MarkAsRead(now)
		if err = r.SaveMessage(txn, m); err != nil {
			return nil, err
		}
		marked = append(marked, m)
	}
	return marked, nil
}

func fromMessage(m domain.Message) DiskMessage {
	return DiskMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		ReadAt:         toNanos(m.ReadAt),
		CreatedAt:      m.CreatedAt.UnixNano(),
	}
}

func toMessage(disk DiskMessage) domain.Message {
	return domain.Message{
		ID:             disk.ID,
		ConversationID: disk.ConversationID,
		SenderID:       disk.SenderID,
		Content:        disk.Content,
		ReadAt:         fromNanos(disk.ReadAt),
		CreatedAt:      time.Unix(0, disk.CreatedAt).UTC(),
	}
}
