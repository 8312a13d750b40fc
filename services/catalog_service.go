package services

import (
	"context"
	"estate-match/domain"
	"estate-match/errors"
	"estate-match/repositories"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type ICatalogService interface {
	CreatePlan(ctx context.Context, adminID string, plan domain.MembershipPlan) (domain.MembershipPlan, error)
	ListActivePlans() ([]domain.MembershipPlan, error)
	CreateProperty(ctx context.Context, ownerID, title string) (domain.Property, error)
	GetProperty(id string) (domain.Property, error)
}

// CatalogService manages what conversations refer to: plans and properties.
type CatalogService struct {
	log     *slog.Logger
	store   *repositories.Store
	users   repositories.IUserRepository
	catalog repositories.ICatalogRepository
	clock   func() time.Time
}

func NewCatalogService(log *slog.Logger, store *repositories.Store,
	users repositories.IUserRepository, catalog repositories.ICatalogRepository,
	clock func() time.Time) *CatalogService {
	return &CatalogService{log: log, store: store, users: users, catalog: catalog, clock: clock}
}

func (s *CatalogService) CreatePlan(ctx context.Context, adminID string, plan domain.MembershipPlan) (domain.MembershipPlan, error) {
	plan.CreatedAt = s.clock()
	if err := plan.Validate(); err != nil {
		return domain.MembershipPlan{}, err
	}
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		if err := s.requireType(txn, adminID, domain.Admin); err != nil {
			return err
		}
		var err error
		plan, err = s.catalog.CreatePlan(txn, plan)
		return err
	})
	return plan, err
}

func (s *CatalogService) ListActivePlans() ([]domain.MembershipPlan, error) {
	var plans []domain.MembershipPlan
	err := s.store.View(func(txn *badger.Txn) error {
		var err error
		plans, err = s.catalog.ListActivePlans(txn)
		return err
	})
	return plans, err
}

func (s *CatalogService) CreateProperty(ctx context.Context, ownerID, title string) (domain.Property, error) {
	property := domain.Property{OwnerID: ownerID, Title: title, Status: domain.PropertyActive, CreatedAt: s.clock()}
	if err := property.Validate(); err != nil {
		return domain.Property{}, err
	}
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		if err := s.requireType(txn, ownerID, domain.Owner); err != nil {
			return err
		}
		var err error
		property, err = s.catalog.CreateProperty(txn, property)
		return err
	})
	return property, err
}

func (s *CatalogService) GetProperty(id string) (domain.Property, error) {
	var property domain.Property
	err := s.store.View(func(txn *badger.Txn) error {
		var err error
		property, err = s.catalog.GetProperty(txn, id)
		return err
	})
	return property, err
}

func (s *CatalogService) requireType(txn *badger.Txn, userID string, want domain.UserType) error {
	user, err := s.users.GetUser(txn, userID)
	if err != nil {
		return err
	}
	if user.Type != want {
		return errors.ErrForbidden
	}
	return nil
}
