package domain

import (
	"estate-match/errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

type PartnershipStatus string

const (
	PartnershipPending    PartnershipStatus = "pending"
	PartnershipActive     PartnershipStatus = "active"
	PartnershipInactive   PartnershipStatus = "inactive"
	PartnershipTerminated PartnershipStatus = "terminated"
)

// Approval is one side's request to partner.
type Approval struct {
	Requested bool
	At        time.Time
}

// ApprovalState is the closed set of request combinations.
type ApprovalState int

const (
	NoRequests ApprovalState = iota
	AgentOnly
	OwnerOnly
	BothRequested
)

type MutualApprovalStatus string

const (
	Approved              MutualApprovalStatus = "approved"
	WaitingForCounterpart MutualApprovalStatus = "waiting_for_counterpart"
	PendingApproval       MutualApprovalStatus = "pending_approval"
	NotRequested          MutualApprovalStatus = "not_requested"
	NotApplicable         MutualApprovalStatus = "not_applicable"
)

type Partnership struct {
	ID             string
	AgentID        string  `validate:"required"`
	OwnerID        string  `validate:"required"`
	CommissionRate float64 `validate:"gt=0,lte=100"`
	Notes          string
	Status         PartnershipStatus
	StartedAt      *time.Time
	EndedAt        *time.Time
	AgentApproval  Approval
	OwnerApproval  Approval
	CreatedAt      time.Time
}

func NewPartnership(agentID, ownerID string, commissionRate float64, notes string, now time.Time) Partnership {
	return Partnership{
		AgentID:        agentID,
		OwnerID:        ownerID,
		CommissionRate: commissionRate,
		Notes:          notes,
		Status:         PartnershipPending,
		CreatedAt:      now,
	}
}

// Validate checks record rules against the two referenced users.
// Pair uniqueness is enforced by the repository.
func (p Partnership) Validate(agent, owner User) error {
	errs := checkStruct(p)
	if agent.ID != "" && !agent.IsAgent() {
		errs.Add("agent", "must be an agent")
	}
	if owner.ID != "" && !owner.IsOwner() {
		errs.Add("owner", "must be an owner")
	}
	if p.StartedAt != nil && p.EndedAt != nil && p.StartedAt.After(*p.EndedAt) {
		errs.Add("ended_at", "must be after the start date")
	}
	return errs.Err()
}

func (p Partnership) ApprovalState() ApprovalState {
	switch {
	case p.AgentApproval.Requested && p.OwnerApproval.Requested:
		return BothRequested
	case p.AgentApproval.Requested:
		return AgentOnly
	case p.OwnerApproval.Requested:
		return OwnerOnly
	default:
		return NoRequests
	}
}

func (p *Partnership) Activate(now time.Time) {
	p.Status = PartnershipActive
	p.StartedAt = &now
}

func (p *Partnership) Terminate(now time.Time) {
	p.Status = PartnershipTerminated
	p.EndedAt = &now
}

// AgentRequest records the agent's request and activates on mutual approval.
func (p *Partnership) AgentRequest(now time.Time) {
	p.AgentApproval = Approval{Requested: true, At: now}
	p.checkMutualApproval(now)
}

// OwnerRequest records the owner's request and activates on mutual approval.
func (p *Partnership) OwnerRequest(now time.Time) {
	p.OwnerApproval = Approval{Requested: true, At: now}
	p.checkMutualApproval(now)
}

func (p *Partnership) checkMutualApproval(now time.Time) {
	if p.ApprovalState() == BothRequested && p.Status == PartnershipPending {
		p.Activate(now)
	}
}

// CancelRequest withdraws the actor's own request. Status is left untouched.
func (p *Partnership) CancelRequest(actor User) {
	switch actor.Type {
	case Agent:
		p.AgentApproval = Approval{}
	case Owner:
		p.OwnerApproval = Approval{}
	}
}

// Approve is the owner-side shortcut that activates a pending partnership.
func (p *Partnership) Approve(actor User, now time.Time) error {
	if p.Status != PartnershipPending || !actor.IsOwner() {
		return fmt.Errorf("%w: cannot approve %s partnership", errors.ErrInvalidTransition, p.Status)
	}
	p.Activate(now)
	return nil
}

// Reject is the owner-side shortcut that terminates a pending partnership.
func (p *Partnership) Reject(actor User, now time.Time) error {
	if p.Status != PartnershipPending || !actor.IsOwner() {
		return fmt.Errorf("%w: cannot reject %s partnership", errors.ErrInvalidTransition, p.Status)
	}
	p.Terminate(now)
	return nil
}

// ToggleStatus is the admin cycle pending -> active -> terminated -> active.
func (p *Partnership) ToggleStatus(now time.Time) error {
	switch p.Status {
	case PartnershipPending:
		p.Activate(now)
	case PartnershipActive:
		p.Terminate(now)
	case PartnershipTerminated:
		p.Activate(now)
		p.EndedAt = nil
	default:
		return fmt.Errorf("%w: cannot toggle %s partnership", errors.ErrInvalidTransition, p.Status)
	}
	return nil
}

// MutualApprovalStatus describes the request handshake from the caller's side.
// agent and owner are the partnership's referenced users.
func (p Partnership) MutualApprovalStatus(current, agent, owner User) MutualApprovalStatus {
	if !agent.IsAgent() || !owner.IsOwner() {
		return NotApplicable
	}
	var mine, theirs bool
	switch {
	case current.ID == agent.ID && current.IsAgent():
		mine, theirs = p.AgentApproval.Requested, p.OwnerApproval.Requested
	case current.ID == owner.ID && current.IsOwner():
		mine, theirs = p.OwnerApproval.Requested, p.AgentApproval.Requested
	default:
		return NotApplicable
	}
	switch {
	case mine && theirs && p.Status == PartnershipActive:
		return Approved
	case mine:
		return WaitingForCounterpart
	case theirs:
		return PendingApproval
	default:
		return NotRequested
	}
}

func (p Partnership) IsParty(userID string) bool {
	return p.AgentID == userID || p.OwnerID == userID
}

// DurationDays counts whole days since the start, up to the end or now.
func (p Partnership) DurationDays(now time.Time) int {
	if p.StartedAt == nil {
		return 0
	}
	end := now
	if p.EndedAt != nil {
		end = *p.EndedAt
	}
	return int(math.Round(end.Sub(*p.StartedAt).Hours() / 24))
}

func (p Partnership) FormattedCommissionRate() string {
	return strconv.FormatFloat(p.CommissionRate, 'f', -1, 64) + "%"
}
