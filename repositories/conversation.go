package repositories

import (
	"estate-match/domain"
	"estate-match/errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IConversationRepository interface {
	CreateConversation(txn *badger.Txn, c domain.Conversation) (domain.Conversation, error)
	SaveConversation(txn *badger.Txn, c domain.Conversation) error
	GetConversation(txn *badger.Txn, id string) (domain.Conversation, error)
	FindByTuple(txn *badger.Txn, t domain.Tuple) (domain.Conversation, error)
	FindByInquiry(txn *badger.Txn, inquiryID string) (domain.Conversation, error)
	ListConversationsForUser(txn *badger.Txn, userID string) ([]domain.Conversation, error)
	MonthlyPropertyIDs(txn *badger.Txn, agentID string, window domain.MonthWindow) ([]string, error)
	DeleteConversation(txn *badger.Txn, c domain.Conversation) error
}

type ConversationRepository struct{}

func NewConversationRepository() IConversationRepository {
	return ConversationRepository{}
}

type DiskConversation struct {
	ID            string `cbor:"id"`
	Type          string `cbor:"type"`
	PropertyID    string `cbor:"property_id,omitempty"`
	AgentID       string `cbor:"agent_id,omitempty"`
	BuyerID       string `cbor:"buyer_id,omitempty"`
	OwnerID       string `cbor:"owner_id"`
	InquiryID     string `cbor:"inquiry_id,omitempty"`
	LastMessageAt int64  `cbor:"last_message_at,omitempty"`
	CreatedAt     int64  `cbor:"created_at"`
}

func conversationKey(id string) string { return "conversation:" + id }

func tupleKey(t domain.Tuple) string {
	return fmt.Sprintf("conversation:tuple:%s:%s:%s:%s", t.PropertyID, t.BuyerID, t.OwnerID, t.AgentID)
}

func conversationUserKey(userID, id string) string {
	return fmt.Sprintf("conversation:user:%s:%s", userID, id)
}

func inquiryConversationKey(inquiryID string) string {
	return "conversation:inquiry:" + inquiryID
}

// The quota index records agent_owner creations by time. It is never removed,
// so destroyed conversations still count for the month they were opened in.
func quotaIndexPrefix(agentID string) string {
	return fmt.Sprintf("quota:idx:%s:", agentID)
}

func quotaIndexKey(agentID string, at time.Time, id string) string {
	return fmt.Sprintf("%s%019d:%s", quotaIndexPrefix(agentID), at.UnixNano(), id)
}

// quotaGuardKey is read by every quota check and written by every agent_owner
// insert of the same month, so two concurrent inserts cannot both commit.
func quotaGuardKey(agentID string, window domain.MonthWindow) string {
	return fmt.Sprintf("quota:guard:%s:%s", agentID, window.From.Format("2006-01"))
}

// CreateConversation stores c and its indexes.
// A second conversation with the same (property, buyer, owner, agent) tuple is
// rejected with a validation error matching errors.ErrDuplicateConversation.
func (r ConversationRepository) CreateConversation(txn *badger.Txn, c domain.Conversation) (domain.Conversation, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tuple := tupleKey(c.Tuple())
	taken, err := exists(txn, tuple)
	if err != nil {
		return domain.Conversation{}, err
	}
	if taken {
		return domain.Conversation{}, domain.Invalid("property_id",
			"conversation already exists for this combination", errors.ErrDuplicateConversation)
	}

	if inquiryID := c.InquiryID(); inquiryID != "" {
		linked, err := exists(txn, inquiryConversationKey(inquiryID))
		if err != nil {
			return domain.Conversation{}, err
		}
		if linked {
			return domain.Conversation{}, domain.Invalid("inquiry",
				"already has a conversation", errors.ErrDuplicateConversation)
		}
	}

	indexes := map[string][]byte{tuple: []byte(c.ID)}
	for _, userID := range c.Participants() {
		indexes[conversationUserKey(userID, c.ID)] = nil
	}
	if inquiryID := c.InquiryID(); inquiryID != "" {
		indexes[inquiryConversationKey(inquiryID)] = []byte(c.ID)
	}
	if c.Type() == domain.AgentOwnerType {
		window := domain.MonthOf(c.CreatedAt)
		indexes[quotaIndexKey(c.AgentID(), c.CreatedAt, c.ID)] = []byte(c.PropertyID)
		indexes[quotaGuardKey(c.AgentID(), window)] = []byte(c.ID)
	}
	for k, v := range indexes {
		if err = txn.Set([]byte(k), v); err != nil {
			return domain.Conversation{}, err
		}
	}
	return c, put(txn, conversationKey(c.ID), fromConversation(c))
}

func (r ConversationRepository) SaveConversation(txn *badger.Txn, c domain.Conversation) error {
	return put(txn, conversationKey(c.ID), fromConversation(c))
}

func (r ConversationRepository) GetConversation(txn *badger.Txn, id string) (domain.Conversation, error) {
	var disk DiskConversation
	if err := get(txn, conversationKey(id), &disk); err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(disk)
}

func (r ConversationRepository) FindByTuple(txn *badger.Txn, t domain.Tuple) (domain.Conversation, error) {
	id, err := getString(txn, tupleKey(t))
	if err != nil {
		return domain.Conversation{}, err
	}
	return r.GetConversation(txn, id)
}

func (r ConversationRepository) FindByInquiry(txn *badger.Txn, inquiryID string) (domain.Conversation, error) {
	id, err := getString(txn, inquiryConversationKey(inquiryID))
	if err != nil {
		return domain.Conversation{}, err
	}
	return r.GetConversation(txn, id)
}

// ListConversationsForUser returns only conversations userID takes part in,
// most recently active first.
func (r ConversationRepository) ListConversationsForUser(txn *badger.Txn, userID string) ([]domain.Conversation, error) {
	prefix := fmt.Sprintf("conversation:user:%s:", userID)
	keys, err := scanKeys(txn, prefix)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Conversation, 0, len(keys))
	for _, k := range keys {
		c, err := r.GetConversation(txn, strings.TrimPrefix(k, prefix))
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	sort.SliceStable(res, func(i, j int) bool {
		li, lj := lo.FromPtr(res[i].LastMessageAt), lo.FromPtr(res[j].LastMessageAt)
		if !li.Equal(lj) {
			return li.After(lj)
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// MonthlyPropertyIDs lists the properties (with repeats) of agent_owner
// conversations the agent opened inside window.
func (r ConversationRepository) MonthlyPropertyIDs(txn *badger.Txn, agentID string, window domain.MonthWindow) ([]string, error) {
	if _, err := exists(txn, quotaGuardKey(agentID, window)); err != nil {
		return nil, err
	}
	prefix := []byte(quotaIndexPrefix(agentID))
	upper := quotaIndexKey(agentID, window.To, "~")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var propertyIDs []string
	for it.Seek([]byte(quotaIndexKey(agentID, window.From, ""))); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		if string(item.Key()) > upper {
			break
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		propertyIDs = append(propertyIDs, string(val))
	}
	return propertyIDs, nil
}

// DeleteConversation removes the conversation with its messages.
func (r ConversationRepository) DeleteConversation(txn *badger.Txn, c domain.Conversation) error {
	msgKeys, err := scanKeys(txn, messagePrefix(c.ID))
	if err != nil {
		return err
	}
	keys := []string{conversationKey(c.ID), tupleKey(c.Tuple())}
	for _, k := range msgKeys {
		keys = append(keys, k, messageIDKey(k[strings.LastIndex(k, ":")+1:]))
	}
	for _, userID := range c.Participants() {
		keys = append(keys, conversationUserKey(userID, c.ID))
	}
	if inquiryID := c.InquiryID(); inquiryID != "" {
		keys = append(keys, inquiryConversationKey(inquiryID))
	}
	for _, k := range keys {
		if err = txn.Delete([]byte(k)); err != nil {
			return err
		}
	}
	return nil
}

func fromConversation(c domain.Conversation) DiskConversation {
	return DiskConversation{
		ID:            c.ID,
		Type:          string(c.Type()),
		PropertyID:    c.PropertyID,
		AgentID:       c.AgentID(),
		BuyerID:       c.BuyerID(),
		OwnerID:       c.OwnerID(),
		InquiryID:     c.InquiryID(),
		LastMessageAt: toNanos(c.LastMessageAt),
		CreatedAt:     c.CreatedAt.UnixNano(),
	}
}

func toConversation(disk DiskConversation) (domain.Conversation, error) {
	var parties domain.Parties
	switch domain.ConversationType(disk.Type) {
	case domain.AgentOwnerType:
		parties = domain.AgentOwner{AgentID: disk.AgentID, OwnerID: disk.OwnerID}
	case domain.AgentBuyerInquiryType:
		parties = domain.AgentBuyerInquiry{
			AgentID:   disk.AgentID,
			BuyerID:   disk.BuyerID,
			OwnerID:   disk.OwnerID,
			InquiryID: disk.InquiryID,
		}
	case domain.BuyerOwnerType:
		parties = domain.BuyerOwner{BuyerID: disk.BuyerID, OwnerID: disk.OwnerID}
	default:
		return domain.Conversation{}, fmt.Errorf("conversation %s has unknown type %q", disk.ID, disk.Type)
	}
	return domain.Conversation{
		ID:            disk.ID,
		Parties:       parties,
		PropertyID:    disk.PropertyID,
		LastMessageAt: fromNanos(disk.LastMessageAt),
		CreatedAt:     time.Unix(0, disk.CreatedAt).UTC(),
	}, nil
}
