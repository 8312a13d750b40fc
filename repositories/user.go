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

type IUserRepository interface {
	CreateUser(txn *badger.Txn, user domain.User) (domain.User, error)
	SaveUser(txn *badger.Txn, user domain.User) error
	GetUser(txn *badger.Txn, id string) (domain.User, error)
	GetUserByEmail(txn *badger.Txn, email string) (domain.User, error)
	GetRoster(txn *badger.Txn, ids ...string) (domain.Roster, error)
	ListAgents(txn *badger.Txn) ([]domain.User, error)
}

type UserRepository struct{}

func NewUserRepository() IUserRepository {
	return UserRepository{}
}

// DiskUser is the stored form of a user.
type DiskUser struct {
	ID                  string `cbor:"id"`
	Name                string `cbor:"name"`
	Email               string `cbor:"email"`
	PasswordHash        string `cbor:"password_hash"`
	Type                string `cbor:"type"`
	CompanyName         string `cbor:"company_name,omitempty"`
	LicenseNumber       string `cbor:"license_number,omitempty"`
	MembershipPlanID    string `cbor:"membership_plan_id,omitempty"`
	MonthlyMessageCount int    `cbor:"monthly_message_count"`
	MessageCountResetAt int64  `cbor:"message_count_reset_at,omitempty"`
	CreatedAt           int64  `cbor:"created_at"`
}

func userKey(id string) string         { return "user:" + id }
func userEmailKey(email string) string { return "user:email:" + strings.ToLower(email) }
func licenseKey(number string) string  { return "user:license:" + number }

// CreateUser persists a new user, assigning its ID.
// Email and license number are unique; the license clash is reported as a validation error.
func (u UserRepository) CreateUser(txn *badger.Txn, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	taken, err := exists(txn, userEmailKey(user.Email))
	if err != nil {
		return domain.User{}, err
	}
	if taken {
		return domain.User{}, errors.ErrUserAlreadyExists
	}
	if user.LicenseNumber != "" {
		taken, err = exists(txn, licenseKey(user.LicenseNumber))
		if err != nil {
			return domain.User{}, err
		}
		if taken {
			return domain.User{}, domain.Invalid("license_number", "has already been taken", nil)
		}
		if err = txn.Set([]byte(licenseKey(user.LicenseNumber)), []byte(user.ID)); err != nil {
			return domain.User{}, err
		}
	}
	if err = txn.Set([]byte(userEmailKey(user.Email)), []byte(user.ID)); err != nil {
		return domain.User{}, err
	}
	if user.IsAgent() {
		if err = txn.Set([]byte("user:agent:"+user.ID), nil); err != nil {
			return domain.User{}, err
		}
	}
	return user, put(txn, userKey(user.ID), fromUser(user))
}

// SaveUser overwrites mutable attributes. Identity keys are not re-indexed.
func (u UserRepository) SaveUser(txn *badger.Txn, user domain.User) error {
	if _, err := u.GetUser(txn, user.ID); err != nil {
		return err
	}
	return put(txn, userKey(user.ID), fromUser(user))
}

func (u UserRepository) GetUser(txn *badger.Txn, id string) (domain.User, error) {
	var disk DiskUser
	if err := get(txn, userKey(id), &disk); err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

func (u UserRepository) GetUserByEmail(txn *badger.Txn, email string) (domain.User, error) {
	id, err := getString(txn, userEmailKey(email))
	if err != nil {
		return domain.User{}, err
	}
	return u.GetUser(txn, id)
}

// GetRoster loads every distinct non-empty id. A missing user is an error.
func (u UserRepository) GetRoster(txn *badger.Txn, ids ...string) (domain.Roster, error) {
	roster := make(domain.Roster)
	for _, id := range lo.Uniq(lo.Compact(ids)) {
		user, err := u.GetUser(txn, id)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", id, err)
		}
		roster[id] = user
	}
	return roster, nil
}

func (u UserRepository) ListAgents(txn *badger.Txn) ([]domain.User, error) {
	keys, err := scanKeys(txn, "user:agent:")
	if err != nil {
		return nil, err
	}
	agents := make([]domain.User, 0, len(keys))
	for _, k := range keys {
		agent, err := u.GetUser(txn, strings.TrimPrefix(k, "user:agent:"))
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}

func fromUser(user domain.User) DiskUser {
	return DiskUser{
		ID:                  user.ID,
		Name:                user.Name,
		Email:               user.Email,
		PasswordHash:        user.PasswordHash,
		Type:                string(user.Type),
		CompanyName:         user.CompanyName,
		LicenseNumber:       user.LicenseNumber,
		MembershipPlanID:    lo.FromPtr(user.MembershipPlanID),
		MonthlyMessageCount: user.MonthlyMessageCount,
		MessageCountResetAt: toNanos(user.MessageCountResetAt),
		CreatedAt:           user.CreatedAt.UnixNano(),
	}
}

func toUser(disk DiskUser) domain.User {
	return domain.User{
		ID:                  disk.ID,
		Name:                disk.Name,
		Email:               disk.Email,
		PasswordHash:        disk.PasswordHash,
		Type:                domain.UserType(disk.Type),
		CompanyName:         disk.CompanyName,
		LicenseNumber:       disk.LicenseNumber,
		MembershipPlanID:    lo.EmptyableToPtr(disk.MembershipPlanID),
		MonthlyMessageCount: disk.MonthlyMessageCount,
		MessageCountResetAt: fromNanos(disk.MessageCountResetAt),
		CreatedAt:           time.Unix(0, disk.CreatedAt).UTC(),
	}
}

func toNanos(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) *time.Time {
	if n == 0 {
		return nil
	}
	return lo.ToPtr(time.Unix(0, n).UTC())
}
