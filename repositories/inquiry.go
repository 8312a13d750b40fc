package repositories

import (
	"estate-match/domain"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IInquiryRepository interface {
	CreateInquiry(txn *badger.Txn, i domain.Inquiry) (domain.Inquiry, error)
	SaveInquiry(txn *badger.Txn, i domain.Inquiry) error
	GetInquiry(txn *badger.Txn, id string) (domain.Inquiry, error)
	ListInquiriesForAgent(txn *badger.Txn, agentID string) ([]domain.Inquiry, error)
}

type InquiryRepository struct{}

func NewInquiryRepository() IInquiryRepository {
	return InquiryRepository{}
}

type DiskInquiry struct {
	ID          string `cbor:"id"`
	PropertyID  string `cbor:"property_id"`
	BuyerID     string `cbor:"buyer_id"`
	AgentID     string `cbor:"agent_id"`
	Message     string `cbor:"message"`
	Status      string `cbor:"status"`
	ContactedAt int64  `cbor:"contacted_at,omitempty"`
	ClosedAt    int64  `cbor:"closed_at,omitempty"`
	CreatedAt   int64  `cbor:"created_at"`
}

func inquiryKey(id string) string { return "inquiry:" + id }

// CreateInquiry allows one inquiry per buyer and property.
func (r InquiryRepository) CreateInquiry(txn *badger.Txn, i domain.Inquiry) (domain.Inquiry, error) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	pair := fmt.Sprintf("inquiry:pair:%s:%s", i.PropertyID, i.BuyerID)
	taken, err := exists(txn, pair)
	if err != nil {
		return domain.Inquiry{}, err
	}
	if taken {
		return domain.Inquiry{}, domain.Invalid("buyer_id", "has already been taken", nil)
	}
	if err = txn.Set([]byte(pair), []byte(i.ID)); err != nil {
		return domain.Inquiry{}, err
	}
	agentIdx := fmt.Sprintf("inquiry:agent:%s:%s", i.AgentID, i.ID)
	if err = txn.Set([]byte(agentIdx), nil); err != nil {
		return domain.Inquiry{}, err
	}
	return i, put(txn, inquiryKey(i.ID), fromInquiry(i))
}

func (r InquiryRepository) SaveInquiry(txn *badger.Txn, i domain.Inquiry) error {
	return put(txn, inquiryKey(i.ID), fromInquiry(i))
}

func (r InquiryRepository) GetInquiry(txn *badger.Txn, id string) (domain.Inquiry, error) {
	var disk DiskInquiry
	if err := get(txn, inquiryKey(id), &disk); err != nil {
		return domain.Inquiry{}, err
	}
	return toInquiry(disk), nil
}

// ListInquiriesForAgent returns the agent's inquiries, most recent first.
func (r InquiryRepository) ListInquiriesForAgent(txn *badger.Txn, agentID string) ([]domain.Inquiry, error) {
	prefix := fmt.Sprintf("inquiry:agent:%s:", agentID)
	keys, err := scanKeys(txn, prefix)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Inquiry, 0, len(keys))
	for _, k := range keys {
		i, err := r.GetInquiry(txn, strings.TrimPrefix(k, prefix))
		if err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	sort.Slice(res, func(a, b int) bool { return res[a].CreatedAt.After(res[b].CreatedAt) })
	return res, nil
}

func fromInquiry(i domain.Inquiry) DiskInquiry {
	return DiskInquiry{
		ID:          i.ID,
		PropertyID:  i.PropertyID,
		BuyerID:     i.BuyerID,
		AgentID:     i.AgentID,
		Message:     i.Message,
		Status:      string(i.Status),
		ContactedAt: toNanos(i.ContactedAt),
		ClosedAt:    toNanos(i.ClosedAt),
		CreatedAt:   i.CreatedAt.UnixNano(),
	}
}

func toInquiry(disk DiskInquiry) domain.Inquiry {
	return domain.Inquiry{
		ID:          disk.ID,
		PropertyID:  disk.PropertyID,
		BuyerID:     disk.BuyerID,
		AgentID:     disk.AgentID,
		Message:     disk.Message,
		Status:      domain.InquiryStatus(disk.Status),
		ContactedAt: fromNanos(disk.ContactedAt),
		ClosedAt:    fromNanos(disk.ClosedAt),
		CreatedAt:   time.Unix(0, disk.CreatedAt).UTC(),
	}
}
