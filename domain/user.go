// Package domain contains core concepts of the marketplace messaging system:
// users and their plans, partnerships, inquiries, conversations and messages.
// No storage, network, or UI logic should be added here.
package domain

import (
	"time"
)

type UserType string

const (
	Buyer UserType = "buyer"
	Owner UserType = "owner"
	Agent UserType = "agent"
	Admin UserType = "admin"
)

func (u UserType) Valid() bool {
	switch u {
	case Buyer, Owner, Agent, Admin:
		return true
	}
	return false
}

func (u UserType) withArticle() string {
	switch u {
	case Agent, Owner, Admin:
		return "an " + string(u)
	}
	return "a " + string(u)
}

type User struct {
	ID           string
	Name         string `validate:"required,max=100"`
	Email        string `validate:"required,email"`
	PasswordHash string
	Type         UserType `validate:"required"`

	// Agent-only attributes.
	CompanyName      string
	LicenseNumber    string
	MembershipPlanID *string

	MonthlyMessageCount int
	MessageCountResetAt *time.Time
	CreatedAt           time.Time
}

func (u User) IsAgent() bool { return u.Type == Agent }
func (u User) IsOwner() bool { return u.Type == Owner }
func (u User) IsBuyer() bool { return u.Type == Buyer }
func (u User) IsAdmin() bool { return u.Type == Admin }

// DisplayName prefers the company for agents, which is how owners know them.
func (u User) DisplayName() string {
	if u.IsAgent() && u.CompanyName != "" {
		return u.CompanyName
	}
	return u.Name
}

// Validate checks the record rules. License uniqueness is a storage concern.
func (u User) Validate() error {
	errs := checkStruct(u)
	if u.Type != "" && !u.Type.Valid() {
		errs.Add("user_type", "is not included in the list")
	}
	if u.IsAgent() {
		if u.CompanyName == "" {
			errs.Add("company_name", "can't be blank")
		}
		if u.LicenseNumber == "" {
			errs.Add("license_number", "can't be blank")
		}
		if u.MembershipPlanID == nil || *u.MembershipPlanID == "" {
			errs.Add("membership_plan", "must exist")
		}
	}
	return errs.Err()
}

// IncrementMonthlyMessages bumps the agent's usage counter, restarting it
// when the last reset happened in an earlier calendar month.
func (u *User) IncrementMonthlyMessages(now time.Time) {
	if u.MessageCountResetAt == nil || BeginningOfMonth(*u.MessageCountResetAt).Before(BeginningOfMonth(now)) {
		u.MonthlyMessageCount = 0
		reset := now
		u.MessageCountResetAt = &reset
	}
	u.MonthlyMessageCount++
}
