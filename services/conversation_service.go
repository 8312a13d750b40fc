package services

import (
	"context"
	"estate-match/domain"
	"estate-match/errors"
	"estate-match/repositories"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IConversationService interface {
	Create(ctx context.Context, cmd CreateConversationCommand) (domain.Conversation, error)
	StartAgentConversation(ctx context.Context, agentID, propertyID string) (domain.Conversation, error)
	Get(id string) (domain.Conversation, error)
	Summary(id, userID string) (ConversationSummary, error)
	ListForUser(userID string) ([]ConversationSummary, error)
	LastMessage(id string) (*domain.Message, error)
	Delete(ctx context.Context, id string) error
	UnreadCountFor(id, userID string) (int, error)
	MarkAsReadFor(ctx context.Context, id, userID string) (int, error)
}

// CreateConversationCommand names the participants by id. Which ids are
// required depends on Type.
type CreateConversationCommand struct {
	Type       domain.ConversationType
	PropertyID string
	AgentID    string
	BuyerID    string
	OwnerID    string
}

func (c CreateConversationCommand) parties() (domain.Parties, error) {
	switch c.Type {
	case domain.AgentOwnerType:
		return domain.AgentOwner{AgentID: c.AgentID, OwnerID: c.OwnerID}, nil
	case domain.AgentBuyerInquiryType:
		// Only InquiryService.CreateConversation builds these, seeded from the inquiry.
		return nil, domain.Invalid("conversation_type", "is started from an inquiry", nil)
	case domain.BuyerOwnerType:
		return domain.BuyerOwner{BuyerID: c.BuyerID, OwnerID: c.OwnerID}, nil
	}
	return nil, domain.Invalid("conversation_type", "is not included in the list", nil)
}

// ConversationSummary is a conversation as seen by one participant.
type ConversationSummary struct {
	Conversation      domain.Conversation
	Title             string
	OtherParticipants []domain.User
	UnreadCount       int
	LastMessage       *domain.Message
}

type ConversationService struct {
	log           *slog.Logger
	store         *repositories.Store
	users         repositories.IUserRepository
	catalog       repositories.ICatalogRepository
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	inquiries     repositories.IInquiryRepository
	quota         *QuotaService
	clock         func() time.Time
}

func NewConversationService(log *slog.Logger, store *repositories.Store,
	users repositories.IUserRepository, catalog repositories.ICatalogRepository,
	conversations repositories.IConversationRepository, messages repositories.IMessageRepository,
	inquiries repositories.IInquiryRepository, quota *QuotaService, clock func() time.Time) *ConversationService {
	return &ConversationService{
		log:           log,
		store:         store,
		users:         users,
		catalog:       catalog,
		conversations: conversations,
		messages:      messages,
		inquiries:     inquiries,
		quota:         quota,
		clock:         clock,
	}
}

// Create validates and stores a conversation in one transaction.
// A duplicate tuple fails with a validation error matching errors.ErrDuplicateConversation.
func (s *ConversationService) Create(ctx context.Context, cmd CreateConversationCommand) (domain.Conversation, error) {
	parties, err := cmd.parties()
	if err != nil {
		return domain.Conversation{}, err
	}
	now := s.clock()
	var created domain.Conversation
	err = s.store.Update(ctx, func(txn *badger.Txn) error {
		created, err = s.createInTx(txn, domain.Conversation{
			Parties:    parties,
			PropertyID: cmd.PropertyID,
			CreatedAt:  now,
		})
		return err
	})
	return created, err
}

// StartAgentConversation opens, or reopens, the agent's conversation with the
// owner of propertyID. An agent at the limit may still reach a conversation
// that already exists.
func (s *ConversationService) StartAgentConversation(ctx context.Context, agentID, propertyID string) (domain.Conversation, error) {
	now := s.clock()
	var res domain.Conversation
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		agent, err := s.users.GetUser(txn, agentID)
		if err != nil {
			return err
		}
		if !agent.IsAgent() {
			return fmt.Errorf("%w: only agents start owner conversations", errors.ErrForbidden)
		}
		property, err := s.catalog.GetProperty(txn, propertyID)
		if err != nil {
			return err
		}
		tuple := domain.Tuple{PropertyID: property.ID, OwnerID: property.OwnerID, AgentID: agent.ID}
		res, err = s.conversations.FindByTuple(txn, tuple)
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrNotFound):
			res, err = s.createInTx(txn, domain.Conversation{
				Parties:    domain.AgentOwner{AgentID: agent.ID, OwnerID: property.OwnerID},
				PropertyID: property.ID,
				CreatedAt:  now,
			})
			if err != nil {
				return err
			}
		default:
			return err
		}
		agent.IncrementMonthlyMessages(now)
		return s.users.SaveUser(txn, agent)
	})
	if errors.Is(err, errors.ErrDuplicateConversation) {
		// Lost the race to a concurrent start: hand back the winner.
		s.log.Debug("Conversation created concurrently", "agent_id", agentID, "property_id", propertyID)
		return s.findAgentConversation(agentID, propertyID)
	}
	return res, err
}

func (s *ConversationService) findAgentConversation(agentID, propertyID string) (domain.Conversation, error) {
	var res domain.Conversation
	err := s.store.View(func(txn *badger.Txn) error {
		property, err := s.catalog.GetProperty(txn, propertyID)
		if err != nil {
			return err
		}
		res, err = s.conversations.FindByTuple(txn, domain.Tuple{PropertyID: propertyID, OwnerID: property.OwnerID, AgentID: agentID})
		return err
	})
	return res, err
}

// createInTx runs every write-time rule: participants, inquiry, quota, uniqueness.
func (s *ConversationService) createInTx(txn *badger.Txn, c domain.Conversation) (domain.Conversation, error) {
	if c.PropertyID != "" {
		if _, err := s.catalog.GetProperty(txn, c.PropertyID); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return domain.Conversation{}, domain.Invalid("property", "must exist", nil)
			}
			return domain.Conversation{}, err
		}
	}
	people, err := s.knownUsers(txn, c.Participants()...)
	if err != nil {
		return domain.Conversation{}, err
	}
	var errs domain.ValidationErrors
	errs.Merge(c.Validate(people))
	if inquiryID := c.InquiryID(); inquiryID != "" {
		inquiry, err := s.inquiries.GetInquiry(txn, inquiryID)
		switch {
		case err == nil:
			errs.Merge(c.ValidateInquiry(inquiry))
		case errors.Is(err, errors.ErrNotFound):
			errs.Add("inquiry", "must exist")
		default:
			return domain.Conversation{}, err
		}
	}
	if err = errs.Err(); err != nil {
		return domain.Conversation{}, err
	}
	switch c.Type() {
	case domain.AgentOwnerType:
		usage, err := s.quota.UsageInTx(txn, people[c.AgentID()], c.CreatedAt)
		if err != nil {
			return domain.Conversation{}, err
		}
		if err = c.ValidateQuota(usage); err != nil {
			return domain.Conversation{}, err
		}
	case domain.BuyerOwnerType:
		s.log.Warn("Creating a deprecated buyer_owner conversation", "property_id", c.PropertyID, "buyer_id", c.BuyerID())
	}
	return s.conversations.CreateConversation(txn, c)
}

// knownUsers loads the ids that exist and skips the others, leaving the
// "must exist" decision to domain validation.
func (s *ConversationService) knownUsers(txn *badger.Txn, ids ...string) (domain.Roster, error) {
	people := make(domain.Roster)
	for _, id := range lo.Uniq(lo.Compact(ids)) {
		user, err := s.users.GetUser(txn, id)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		people[id] = user
	}
	return people, nil
}

func (s *ConversationService) Get(id string) (domain.Conversation, error) {
	var c domain.Conversation
	err := s.store.View(func(txn *badger.Txn) error {
		var err error
		c, err = s.conversations.GetConversation(txn, id)
		return err
	})
	return c, err
}

// Summary fails with errors.ErrForbidden when userID is not a participant.
func (s *ConversationService) Summary(id, userID string) (ConversationSummary, error) {
	var summary ConversationSummary
	err := s.store.View(func(txn *badger.Txn) error {
		c, err := s.conversations.GetConversation(txn, id)
		if err != nil {
			return err
		}
		if !c.IsParticipant(userID) {
			return errors.ErrForbidden
		}
		summary, err = s.summarize(txn, c, userID)
		return err
	})
	return summary, err
}

// ListForUser returns the conversations userID takes part in, most recently
// active first.
func (s *ConversationService) ListForUser(userID string) ([]ConversationSummary, error) {
	var res []ConversationSummary
	err := s.store.View(func(txn *badger.Txn) error {
		conversations, err := s.conversations.ListConversationsForUser(txn, userID)
		if err != nil {
			return err
		}
		res = make([]ConversationSummary, 0, len(conversations))
		for _, c := range conversations {
			summary, err := s.summarize(txn, c, userID)
			if err != nil {
				return err
			}
			res = append(res, summary)
		}
		return nil
	})
	return res, err
}

func (s *ConversationService) summarize(txn *badger.Txn, c domain.Conversation, userID string) (ConversationSummary, error) {
	people, err := s.users.GetRoster(txn, c.Participants()...)
	if err != nil {
		return ConversationSummary{}, err
	}
	var property *domain.Property
	if c.PropertyID != "" {
		p, err := s.catalog.GetProperty(txn, c.PropertyID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return ConversationSummary{}, err
		}
		if err == nil {
			property = &p
		}
	}
	unread, err := s.messages.UnreadCount(txn, c.ID, userID)
	if err != nil {
		return ConversationSummary{}, err
	}
	last, err := s.messages.LastMessage(txn, c.ID)
	if err != nil {
		return ConversationSummary{}, err
	}
	return ConversationSummary{
		Conversation: c,
		Title:        c.DisplayTitle(userID, people, property),
		OtherParticipants: lo.Map(c.OtherParticipants(userID), func(id string, _ int) domain.User {
			return people[id]
		}),
		UnreadCount: unread,
		LastMessage: last,
	}, nil
}

func (s *ConversationService) LastMessage(id string) (*domain.Message, error) {
	var last *domain.Message
	err := s.store.View(func(txn *badger.Txn) error {
		if _, err := s.conversations.GetConversation(txn, id); err != nil {
			return err
		}
		var err error
		last, err = s.messages.LastMessage(txn, id)
		return err
	})
	return last, err
}

// Delete removes the conversation and its messages. Its quota slot stays used.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	return s.store.Update(ctx, func(txn *badger.Txn) error {
		c, err := s.conversations.GetConversation(txn, id)
		if err != nil {
			return err
		}
		return s.conversations.DeleteConversation(txn, c)
	})
}

func (s *ConversationService) UnreadCountFor(id, userID string) (int, error) {
	var count int
	err := s.store.View(func(txn *badger.Txn) error {
		var err error
		count, err = s.messages.UnreadCount(txn, id, userID)
		return err
	})
	return count, err
}

// MarkAsReadFor marks every message userID received in the conversation as
// read and returns how many changed. Running it again changes nothing.
func (s *ConversationService) MarkAsReadFor(ctx context.Context, id, userID string) (int, error) {
	now := s.clock()
	var marked []domain.Message
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		if _, err := s.conversations.GetConversation(txn, id); err != nil {
			return err
		}
		var err error
		marked, err = s.messages.MarkAllRead(txn, id, userID, now)
		return err
	})
	if len(marked) > 0 {
		s.log.Debug("Messages marked as read", "conversation_id", id, "user_id", userID, "count", len(marked))
	}
	return len(marked), err
}
