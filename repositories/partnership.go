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

type IPartnershipRepository interface {
	CreatePartnership(txn *badger.Txn, p domain.Partnership) (domain.Partnership, error)
	SavePartnership(txn *badger.Txn, p domain.Partnership) error
	GetPartnership(txn *badger.Txn, id string) (domain.Partnership, error)
	ListPartnershipsForUser(txn *badger.Txn, userID string) ([]domain.Partnership, error)
	DeletePartnership(txn *badger.Txn, p domain.Partnership) error
}

type PartnershipRepository struct{}

func NewPartnershipRepository() IPartnershipRepository {
	return PartnershipRepository{}
}

type DiskPartnership struct {
	ID               string  `cbor:"id"`
	AgentID          string  `cbor:"agent_id"`
	OwnerID          string  `cbor:"owner_id"`
	CommissionRate   float64 `cbor:"commission_rate"`
	Notes            string  `cbor:"notes,omitempty"`
	Status           string  `cbor:"status"`
	StartedAt        int64   `cbor:"started_at,omitempty"`
	EndedAt          int64   `cbor:"ended_at,omitempty"`
	AgentRequestedAt int64   `cbor:"agent_requested_at,omitempty"`
	OwnerRequestedAt int64   `cbor:"owner_requested_at,omitempty"`
	CreatedAt        int64   `cbor:"created_at"`
}

func partnershipKey(id string) string { return "partnership:" + id }

func partnershipPairKey(agentID, ownerID string) string {
	return fmt.Sprintf("partnership:pair:%s:%s", agentID, ownerID)
}

func partnershipUserKey(userID, id string) string {
	return fmt.Sprintf("partnership:user:%s:%s", userID, id)
}

// CreatePartnership rejects a second partnership for the same agent and owner.
func (r PartnershipRepository) CreatePartnership(txn *badger.Txn, p domain.Partnership) (domain.Partnership, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	pair := partnershipPairKey(p.AgentID, p.OwnerID)
	taken, err := exists(txn, pair)
	if err != nil {
		return domain.Partnership{}, err
	}
	if taken {
		return domain.Partnership{}, domain.Invalid("agent_id", "has already been taken", nil)
	}
	for _, k := range []string{pair, partnershipUserKey(p.AgentID, p.ID), partnershipUserKey(p.OwnerID, p.ID)} {
		if err = txn.Set([]byte(k), []byte(p.ID)); err != nil {
			return domain.Partnership{}, err
		}
	}
	return p, put(txn, partnershipKey(p.ID), fromPartnership(p))
}

func (r PartnershipRepository) SavePartnership(txn *badger.Txn, p domain.Partnership) error {
	return put(txn, partnershipKey(p.ID), fromPartnership(p))
}

func (r PartnershipRepository) GetPartnership(txn *badger.Txn, id string) (domain.Partnership, error) {
	var disk DiskPartnership
	if err := get(txn, partnershipKey(id), &disk); err != nil {
		return domain.Partnership{}, err
	}
	return toPartnership(disk), nil
}

// ListPartnershipsForUser returns the partnerships the user is a party of, newest first.
func (r PartnershipRepository) ListPartnershipsForUser(txn *badger.Txn, userID string) ([]domain.Partnership, error) {
	prefix := fmt.Sprintf("partnership:user:%s:", userID)
	keys, err := scanKeys(txn, prefix)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Partnership, 0, len(keys))
	for _, k := range keys {
		p, err := r.GetPartnership(txn, strings.TrimPrefix(k, prefix))
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (r PartnershipRepository) DeletePartnership(txn *badger.Txn, p domain.Partnership) error {
	keys := []string{
		partnershipKey(p.ID),
		partnershipPairKey(p.AgentID, p.OwnerID),
		partnershipUserKey(p.AgentID, p.ID),
		partnershipUserKey(p.OwnerID, p.ID),
	}
	for _, k := range keys {
		if err := txn.Delete([]byte(k)); err != nil {
			return err
		}
	}
	return nil
}

func fromPartnership(p domain.Partnership) DiskPartnership {
	disk := DiskPartnership{
		ID:             p.ID,
		AgentID:        p.AgentID,
		OwnerID:        p.OwnerID,
		CommissionRate: p.CommissionRate,
		Notes:          p.Notes,
		Status:         string(p.Status),
		StartedAt:      toNanos(p.StartedAt),
		EndedAt:        toNanos(p.EndedAt),
		CreatedAt:      p.CreatedAt.UnixNano(),
	}
	if p.AgentApproval.Requested {
		disk.AgentRequestedAt = p.AgentApproval.At.UnixNano()
	}
	if p.OwnerApproval.Requested {
		disk.OwnerRequestedAt = p.OwnerApproval.At.UnixNano()
	}
	return disk
}

func toPartnership(disk DiskPartnership) domain.Partnership {
	return domain.Partnership{
		ID:             disk.ID,
		AgentID:        disk.AgentID,
		OwnerID:        disk.OwnerID,
		CommissionRate: disk.CommissionRate,
		Notes:          disk.Notes,
		Status:         domain.PartnershipStatus(disk.Status),
		StartedAt:      fromNanos(disk.StartedAt),
		EndedAt:        fromNanos(disk.EndedAt),
		AgentApproval:  toApproval(disk.AgentRequestedAt),
		OwnerApproval:  toApproval(disk.OwnerRequestedAt),
		CreatedAt:      time.Unix(0, disk.CreatedAt).UTC(),
	}
}

func toApproval(n int64) domain.Approval {
	if n == 0 {
		return domain.Approval{}
	}
	return domain.Approval{Requested: true, At: time.Unix(0, n).UTC()}
}
