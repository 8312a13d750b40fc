package services

import (
	"context"
	"estate-match/domain"
	"estate-match/domain/event"
	"estate-match/errors"
	"estate-match/repositories"
	"estate-match/runtime"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IMessageService interface {
	Create(ctx context.Context, conversationID, senderID, content string) (domain.Message, error)
	MarkAsRead(ctx context.Context, messageID, readerID string) (domain.Message, error)
	List(conversationID string, cursor *string) ([]domain.Message, *string, error)
}

// MessageService is the only write path for messages. Side effects of a new
// message go through the pipeline: transactional handlers share the write,
// the others run once it is committed.
type MessageService struct {
	log           *slog.Logger
	store         *repositories.Store
	users         repositories.IUserRepository
	catalog       repositories.ICatalogRepository
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	pipeline      *runtime.Pipeline
	limitMessages int
	clock         func() time.Time
}

func NewMessageService(log *slog.Logger, store *repositories.Store,
	users repositories.IUserRepository, catalog repositories.ICatalogRepository,
	conversations repositories.IConversationRepository, messages repositories.IMessageRepository,
	pipeline *runtime.Pipeline, limitMessages int, clock func() time.Time) *MessageService {
	return &MessageService{
		log:           log,
		store:         store,
		users:         users,
		catalog:       catalog,
		conversations: conversations,
		messages:      messages,
		pipeline:      pipeline,
		limitMessages: limitMessages,
		clock:         clock,
	}
}

// Create stores a message from a participant. Broadcast failures are logged
// by the pipeline and never undo the write.
func (s *MessageService) Create(ctx context.Context, conversationID, senderID, content string) (domain.Message, error) {
	now := s.clock()
	var created event.MessageCreated
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		c, err := s.conversations.GetConversation(txn, conversationID)
		if err != nil {
			return err
		}
		if !c.IsParticipant(senderID) {
			return errors.ErrForbidden
		}
		created, err = s.createInTx(txn, c, senderID, content, now)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	s.pipeline.DispatchAfterCommit(ctx, created)
	return created.Message, nil
}

// createInTx writes the message and runs the transactional handlers. The
// returned event must be dispatched after commit by the caller.
func (s *MessageService) createInTx(txn *badger.Txn, c domain.Conversation, senderID, content string, now time.Time) (event.MessageCreated, error) {
	message := domain.Message{
		ConversationID: c.ID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now,
	}
	if err := message.Validate(); err != nil {
		return event.MessageCreated{}, err
	}
	message, err := s.messages.CreateMessage(txn, message)
	if err != nil {
		return event.MessageCreated{}, err
	}
	people, err := s.users.GetRoster(txn, c.Participants()...)
	if err != nil {
		return event.MessageCreated{}, err
	}
	evt := event.MessageCreated{Message: message, Conversation: c, People: people, At: now}
	if c.PropertyID != "" {
		property, err := s.catalog.GetProperty(txn, c.PropertyID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return event.MessageCreated{}, err
		}
		if err == nil {
			evt.Property = &property
		}
	}
	return evt, s.pipeline.DispatchInTx(txn, evt)
}

// MarkAsRead is one-way. Readers cannot mark their own messages and a message
// already read is returned unchanged without a new read receipt.
func (s *MessageService) MarkAsRead(ctx context.Context, messageID, readerID string) (domain.Message, error) {
	now := s.clock()
	var (
		message      domain.Message
		conversation domain.Conversation
		changed      bool
	)
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		var err error
		if message, err = s.messages.GetMessage(txn, messageID); err != nil {
			return err
		}
		if conversation, err = s.conversations.GetConversation(txn, message.ConversationID); err != nil {
			return err
		}
		if !conversation.IsParticipant(readerID) {
			return errors.ErrForbidden
		}
		if message.SenderID == readerID {
			return errors.ErrOwnMessage
		}
		if changed = message.MarkAsRead(now); !changed {
			return nil
		}
		return s.messages.SaveMessage(txn, message)
	})
	if err != nil {
		return domain.Message{}, err
	}
	if changed {
		s.pipeline.DispatchAfterCommit(ctx, event.MessageRead{Message: message, Conversation: conversation, ReaderID: readerID})
	}
	return message, nil
}

// List pages backwards from cursor, newest first.
func (s *MessageService) List(conversationID string, cursor *string) ([]domain.Message, *string, error) {
	var (
		messages []domain.Message
		next     *string
	)
	err := s.store.View(func(txn *badger.Txn) error {
		if _, err := s.conversations.GetConversation(txn, conversationID); err != nil {
			return err
		}
		var err error
		messages, next, err = s.messages.PageMessages(txn, conversationID, cursor, s.limitMessages)
		return err
	})
	return messages, next, err
}
