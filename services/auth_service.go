package services

import (
	"context"
	"estate-match/auth"
	"estate-match/domain"
	"estate-match/errors"
	"estate-match/repositories"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IAuthService interface {
	Login(email, password string) (Token, error)
	Register(ctx context.Context, cmd RegisterCommand) (Token, domain.User, error)
}

type Token string

// RegisterCommand is a sign-up. Agents also provide their company, license
// and membership plan.
type RegisterCommand struct {
	Name             string
	Email            string
	Password         string
	Type             domain.UserType
	CompanyName      string
	LicenseNumber    string
	MembershipPlanID string
}

type AuthService struct {
	log     *slog.Logger
	store   *repositories.Store
	users   repositories.IUserRepository
	catalog repositories.ICatalogRepository
	tokens  auth.TokenManager
	clock   func() time.Time
}

func NewAuthService(log *slog.Logger, store *repositories.Store,
	users repositories.IUserRepository, catalog repositories.ICatalogRepository,
	tokens auth.TokenManager, clock func() time.Time) *AuthService {
	return &AuthService{log: log, store: store, users: users, catalog: catalog, tokens: tokens, clock: clock}
}

func (s *AuthService) Register(ctx context.Context, cmd RegisterCommand) (Token, domain.User, error) {
	// Password rules first, before any expensive hashing.
	if problems := auth.PasswordProblems(cmd.Password); len(problems) > 0 {
		var verrs domain.ValidationErrors
		for _, p := range problems {
			verrs.AddCause("password", p, errors.ErrInvalidPassword)
		}
		return "", domain.User{}, verrs
	}
	hashedPassword, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user := domain.User{
		Name:             strings.TrimSpace(cmd.Name),
		Email:            strings.TrimSpace(cmd.Email),
		PasswordHash:     hashedPassword,
		Type:             cmd.Type,
		CompanyName:      cmd.CompanyName,
		LicenseNumber:    cmd.LicenseNumber,
		MembershipPlanID: lo.EmptyableToPtr(cmd.MembershipPlanID),
		CreatedAt:        s.clock(),
	}
	if user.Type == domain.Admin {
		return "", domain.User{}, fmt.Errorf("%w: admins are not self-registered", errors.ErrForbidden)
	}
	if err = user.Validate(); err != nil {
		return "", domain.User{}, err
	}
	err = s.store.Update(ctx, func(txn *badger.Txn) error {
		if user.MembershipPlanID != nil {
			if _, err := s.catalog.GetPlan(txn, *user.MembershipPlanID); errors.Is(err, errors.ErrNotFound) {
				return domain.Invalid("membership_plan", "must exist", nil)
			} else if err != nil {
				return err
			}
		}
		var err error
		user, err = s.users.CreateUser(txn, user)
		return err
	})
	if err != nil {
		return "", domain.User{}, err
	}
	s.log.Info("User registered", "user_id", user.ID, "type", user.Type)

	token, err := s.tokens.GenerateToken(user.ID, []string{string(user.Type)})
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}
	return Token(token), user, nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	var user domain.User
	err := s.store.View(func(txn *badger.Txn) error {
		var err error
		user, err = s.users.GetUserByEmail(txn, email)
		return err
	})
	if err != nil {
		// Same answer as a bad password, no user enumeration.
		return "", errors.ErrInvalidCredentials
	}
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}
	token, err := s.tokens.GenerateToken(user.ID, []string{string(user.Type)})
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
