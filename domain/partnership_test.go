package domain

import (
	"estate-match/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPartnership_Mutual_Approval(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := User{ID: "agent", Type: Agent}
	owner := User{ID: "owner", Type: Owner}

	t.Run("should stay pending on a single request", func(t *testing.T) {
		req := require.New(t)
		p := NewPartnership("agent", "owner", 3, "", now)
		p.AgentRequest(now)

		req.Equal(AgentOnly, p.ApprovalState())
		req.Equal(PartnershipPending, p.Status)
		req.Equal(WaitingForCounterpart, p.MutualApprovalStatus(agent, agent, owner))
		req.Equal(PendingApproval, p.MutualApprovalStatus(owner, agent, owner))
	})

	t.Run("should activate once both asked", func(t *testing.T) {
		req := require.New(t)
		p := NewPartnership("agent", "owner", 3, "", now)
		p.OwnerRequest(now)
		p.AgentRequest(now.Add(time.Hour))

		req.Equal(BothRequested, p.ApprovalState())
		req.Equal(PartnershipActive, p.Status)
		req.Equal(now.Add(time.Hour), *p.StartedAt)
		req.Equal(Approved, p.MutualApprovalStatus(owner, agent, owner))
	})

	t.Run("should not reactivate a terminated partnership", func(t *testing.T) {
		req := require.New(t)
		p := NewPartnership("agent", "owner", 3, "", now)
		p.Terminate(now)
		p.AgentRequest(now)
		p.OwnerRequest(now)

		req.Equal(PartnershipTerminated, p.Status)
	})

	t.Run("should withdraw only the actor's request", func(t *testing.T) {
		req := require.New(t)
		p := NewPartnership("agent", "owner", 3, "", now)
		p.AgentRequest(now)
		p.CancelRequest(owner)
		req.Equal(AgentOnly, p.ApprovalState())
		p.CancelRequest(agent)
		req.Equal(NoRequests, p.ApprovalState())
		req.Equal(NotRequested, p.MutualApprovalStatus(agent, agent, owner))
	})

	t.Run("should be not applicable to outsiders", func(t *testing.T) {
		req := require.New(t)
		p := NewPartnership("agent", "owner", 3, "", now)
		req.Equal(NotApplicable, p.MutualApprovalStatus(User{ID: "buyer", Type: Buyer}, agent, owner))
	})
}

func TestPartnership_Owner_Shortcuts(t *testing.T) {
	req := require.New(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := User{ID: "agent", Type: Agent}
	owner := User{ID: "owner", Type: Owner}

	p := NewPartnership("agent", "owner", 3, "", now)
	req.ErrorIs(p.Approve(agent, now), errors.ErrInvalidTransition)
	req.NoError(p.Approve(owner, now))
	req.Equal(PartnershipActive, p.Status)
	req.ErrorIs(p.Reject(owner, now), errors.ErrInvalidTransition)

	pending := NewPartnership("agent", "owner", 3, "", now)
	req.NoError(pending.Reject(owner, now))
	req.Equal(PartnershipTerminated, pending.Status)
}

func TestPartnership_ToggleStatus(t *testing.T) {
	req := require.New(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	p := NewPartnership("agent", "owner", 3, "", now)

	req.NoError(p.ToggleStatus(now))
	req.Equal(PartnershipActive, p.Status)
	req.NoError(p.ToggleStatus(now))
	req.Equal(PartnershipTerminated, p.Status)
	req.NotNil(p.EndedAt)
	req.NoError(p.ToggleStatus(now))
	req.Equal(PartnershipActive, p.Status)
	req.Nil(p.EndedAt)

	p.Status = PartnershipInactive
	req.ErrorIs(p.ToggleStatus(now), errors.ErrInvalidTransition)
}

func TestPartnership_Validate_And_Figures(t *testing.T) {
	req := require.New(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := User{ID: "agent", Type: Agent}
	owner := User{ID: "owner", Type: Owner}

	p := NewPartnership("agent", "owner", 0, "", now)
	var verrs ValidationErrors
	req.ErrorAs(p.Validate(owner, agent), &verrs)
	req.Equal([]string{"must be greater than 0"}, verrs.On("commission_rate"))
	req.Equal([]string{"must be an agent"}, verrs.On("agent"))
	req.Equal([]string{"must be an owner"}, verrs.On("owner"))

	p.CommissionRate = 3.5
	req.Equal("3.5%", p.FormattedCommissionRate())
	req.Zero(p.DurationDays(now))
	p.Activate(now)
	req.Equal(10, p.DurationDays(now.AddDate(0, 0, 10)))
}

func TestInquiry_Metrics(t *testing.T) {
	req := require.New(t)
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	i := NewInquiry("p", "b", "a", "hello", created)

	req.Zero(i.ResponseTimeHours())
	i.MarkContacted(created.Add(90 * time.Minute))
	req.Equal(InquiryContacted, i.Status)
	req.Equal(1.5, i.ResponseTimeHours())
	req.Equal(3, i.DaysSinceInquiry(created.AddDate(0, 0, 3)))
}

func TestValidationErrors(t *testing.T) {
	req := require.New(t)
	var errs ValidationErrors
	errs.Add("name", "can't be blank")
	errs.Add(BaseField, "monthly property message limit (1 properties) exceeded")
	errs.AddCause("property_id", "conversation already exists for this combination", errors.ErrDuplicateConversation)

	err := errs.Err()
	req.Equal("name can't be blank, monthly property message limit (1 properties) exceeded, property_id conversation already exists for this combination", err.Error())
	req.ErrorIs(err, errors.ErrValidation)
	req.ErrorIs(err, errors.ErrDuplicateConversation)
	req.NoError(ValidationErrors{}.Err())

	req.Equal("owner_id", toSnake("OwnerID"))
	req.Equal("monthly_property_limit", toSnake("MonthlyPropertyLimit"))
	req.Equal("commission_rate", toSnake("CommissionRate"))
}
