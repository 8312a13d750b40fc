package repositories

import (
	"estate-match/domain"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ICatalogRepository stores the admin-managed membership plans and the
// listings conversations point at.
type ICatalogRepository interface {
	CreatePlan(txn *badger.Txn, plan domain.MembershipPlan) (domain.MembershipPlan, error)
	GetPlan(txn *badger.Txn, id string) (domain.MembershipPlan, error)
	ListActivePlans(txn *badger.Txn) ([]domain.MembershipPlan, error)
	CreateProperty(txn *badger.Txn, property domain.Property) (domain.Property, error)
	GetProperty(txn *badger.Txn, id string) (domain.Property, error)
}

type CatalogRepository struct{}

func NewCatalogRepository() ICatalogRepository {
	return CatalogRepository{}
}

type DiskPlan struct {
	ID                   string   `cbor:"id"`
	Name                 string   `cbor:"name"`
	MonthlyPropertyLimit int      `cbor:"monthly_property_limit"`
	MonthlyPrice         int      `cbor:"monthly_price"`
	Features             []string `cbor:"features,omitempty"`
	Active               bool     `cbor:"active"`
	SortOrder            int      `cbor:"sort_order"`
	CreatedAt            int64    `cbor:"created_at"`
}

type DiskProperty struct {
	ID        string `cbor:"id"`
	OwnerID   string `cbor:"owner_id"`
	Title     string `cbor:"title"`
	Status    string `cbor:"status"`
	CreatedAt int64  `cbor:"created_at"`
}

func (c CatalogRepository) CreatePlan(txn *badger.Txn, plan domain.MembershipPlan) (domain.MembershipPlan, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	return plan, put(txn, "plan:"+plan.ID, DiskPlan{
		ID:                   plan.ID,
		Name:                 plan.Name,
		MonthlyPropertyLimit: plan.MonthlyPropertyLimit,
		MonthlyPrice:         plan.MonthlyPrice,
		Features:             plan.Features,
		Active:               plan.Active,
		SortOrder:            plan.SortOrder,
		CreatedAt:            plan.CreatedAt.UnixNano(),
	})
}

func (c CatalogRepository) GetPlan(txn *badger.Txn, id string) (domain.MembershipPlan, error) {
	var disk DiskPlan
	if err := get(txn, "plan:"+id, &disk); err != nil {
		return domain.MembershipPlan{}, err
	}
	return toPlan(disk), nil
}

// ListActivePlans orders plans by sort order, then id.
func (c CatalogRepository) ListActivePlans(txn *badger.Txn) ([]domain.MembershipPlan, error) {
	var plans []domain.MembershipPlan
	err := scanPrefix(txn, "plan:", func(_ string, val []byte) error {
		var disk DiskPlan
		if err := decode(val, &disk); err != nil {
			return err
		}
		if disk.Active {
			plans = append(plans, toPlan(disk))
		}
		return nil
	})
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].SortOrder != plans[j].SortOrder {
			return plans[i].SortOrder < plans[j].SortOrder
		}
		return plans[i].ID < plans[j].ID
	})
	return plans, err
}

func (c CatalogRepository) CreateProperty(txn *badger.Txn, property domain.Property) (domain.Property, error) {
	if property.ID == "" {
		property.ID = uuid.NewString()
	}
	return property, put(txn, "property:"+property.ID, DiskProperty{
		ID:        property.ID,
		OwnerID:   property.OwnerID,
		Title:     property.Title,
		Status:    string(property.Status),
		CreatedAt: property.CreatedAt.UnixNano(),
	})
}

func (c CatalogRepository) GetProperty(txn *badger.Txn, id string) (domain.Property, error) {
	var disk DiskProperty
	if err := get(txn, "property:"+id, &disk); err != nil {
		return domain.Property{}, err
	}
	return domain.Property{
		ID:        disk.ID,
		OwnerID:   disk.OwnerID,
		Title:     disk.Title,
		Status:    domain.PropertyStatus(disk.Status),
		CreatedAt: time.Unix(0, disk.CreatedAt).UTC(),
	}, nil
}

func toPlan(disk DiskPlan) domain.MembershipPlan {
	return domain.MembershipPlan{
		ID:                   disk.ID,
		Name:                 disk.Name,
		MonthlyPropertyLimit: disk.MonthlyPropertyLimit,
		MonthlyPrice:         disk.MonthlyPrice,
		Features:             disk.Features,
		Active:               disk.Active,
		SortOrder:            disk.SortOrder,
		CreatedAt:            time.Unix(0, disk.CreatedAt).UTC(),
	}
}
