package services

import (
	"context"
	"estate-match/domain"
	"estate-match/domain/event"
	"estate-match/errors"
	"estate-match/repositories"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IInquiryService interface {
	Create(ctx context.Context, buyerID, propertyID, agentID, message string) (domain.Inquiry, error)
	CreateConversation(ctx context.Context, inquiryID string) (domain.Conversation, error)
	MarkClosed(ctx context.Context, inquiryID, agentID string) (domain.Inquiry, error)
	Get(id string) (domain.Inquiry, error)
	ListForAgent(agentID string) ([]domain.Inquiry, error)
}

type InquiryService struct {
	log           *slog.Logger
	store         *repositories.Store
	users         repositories.IUserRepository
	catalog       repositories.ICatalogRepository
	inquiries     repositories.IInquiryRepository
	conversations repositories.IConversationRepository
	conversation  *ConversationService
	message       *MessageService
	clock         func() time.Time
}

func NewInquiryService(log *slog.Logger, store *repositories.Store,
	users repositories.IUserRepository, catalog repositories.ICatalogRepository,
	inquiries repositories.IInquiryRepository, conversations repositories.IConversationRepository,
	conversation *ConversationService, message *MessageService, clock func() time.Time) *InquiryService {
	return &InquiryService{
		log:           log,
		store:         store,
		users:         users,
		catalog:       catalog,
		inquiries:     inquiries,
		conversations: conversations,
		conversation:  conversation,
		message:       message,
		clock:         clock,
	}
}

func (s *InquiryService) Create(ctx context.Context, buyerID, propertyID, agentID, message string) (domain.Inquiry, error) {
	inquiry := domain.NewInquiry(propertyID, buyerID, agentID, message, s.clock())
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		buyer, err := s.users.GetUser(txn, buyerID)
		if err != nil {
			return err
		}
		agent, err := s.users.GetUser(txn, agentID)
		if errors.Is(err, errors.ErrNotFound) {
			return domain.Invalid("agent", "must exist", nil)
		}
		if err != nil {
			return err
		}
		if _, err = s.catalog.GetProperty(txn, propertyID); errors.Is(err, errors.ErrNotFound) {
			return domain.Invalid("property", "must exist", nil)
		} else if err != nil {
			return err
		}
		if err = inquiry.Validate(buyer, agent); err != nil {
			return err
		}
		inquiry, err = s.inquiries.CreateInquiry(txn, inquiry)
		return err
	})
	return inquiry, err
}

// CreateConversation turns the inquiry into an agent_buyer_inquiry
// conversation seeded with the buyer's message, and marks the inquiry
// contacted. The three writes commit together. Calling it again returns the
// conversation created the first time.
func (s *InquiryService) CreateConversation(ctx context.Context, inquiryID string) (domain.Conversation, error) {
	now := s.clock()
	var (
		conversation domain.Conversation
		seeded       *event.MessageCreated
	)
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		seeded = nil
		inquiry, err := s.inquiries.GetInquiry(txn, inquiryID)
		if err != nil {
			return err
		}
		conversation, err = s.conversations.FindByInquiry(txn, inquiry.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}
		property, err := s.catalog.GetProperty(txn, inquiry.PropertyID)
		if err != nil {
			return fmt.Errorf("property of inquiry %s: %w", inquiry.ID, err)
		}
		conversation, err = s.conversation.createInTx(txn, domain.Conversation{
			Parties: domain.AgentBuyerInquiry{
				AgentID:   inquiry.AgentID,
				BuyerID:   inquiry.BuyerID,
				OwnerID:   property.OwnerID,
				InquiryID: inquiry.ID,
			},
			PropertyID: property.ID,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		evt, err := s.message.createInTx(txn, conversation, inquiry.BuyerID, inquiry.Message, now)
		if err != nil {
			return err
		}
		seeded = &evt
		inquiry.MarkContacted(now)
		return s.inquiries.SaveInquiry(txn, inquiry)
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	if seeded != nil {
		s.log.Info("Inquiry converted to conversation", "inquiry_id", inquiryID, "conversation_id", conversation.ID)
		s.message.pipeline.DispatchAfterCommit(ctx, *seeded)
	}
	return conversation, nil
}

// MarkClosed is reserved to the agent the inquiry was sent to.
func (s *InquiryService) MarkClosed(ctx context.Context, inquiryID, agentID string) (domain.Inquiry, error) {
	now := s.clock()
	var inquiry domain.Inquiry
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		var err error
		if inquiry, err = s.inquiries.GetInquiry(txn, inquiryID); err != nil {
			return err
		}
		if inquiry.AgentID != agentID {
			return errors.ErrForbidden
		}
		inquiry.MarkClosed(now)
		return s.inquiries.SaveInquiry(txn, inquiry)
	})
	return inquiry, err
}

func (s *InquiryService) Get(id string) (domain.Inquiry, error) {
	var inquiry domain.Inquiry
	err := s.store.View(func(txn *badger.Txn) error {
		var err error
		inquiry, err = s.inquiries.GetInquiry(txn, id)
		return err
	})
	return inquiry, err
}

func (s *InquiryService) ListForAgent(agentID string) ([]domain.Inquiry, error) {
	var res []domain.Inquiry
	err := s.store.View(func(txn *badger.Txn) error {
		var err error
		res, err = s.inquiries.ListInquiriesForAgent(txn, agentID)
		return err
	})
	return res, err
}
