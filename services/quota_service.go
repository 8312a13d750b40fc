package services

import (
	"estate-match/domain"
	"estate-match/errors"
	"estate-match/repositories"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IQuotaService interface {
	MonthlyPropertyCount(agentID string, asOf time.Time) (int, error)
	MonthlyPropertyLimit(agentID string) (int, error)
	QuotaExceeded(agentID string, asOf time.Time) (bool, error)
	CanStartNewConversation(agentID string, asOf time.Time) (bool, error)
	Report(agentID string, asOf time.Time) (QuotaReport, error)
}

// QuotaReport is the agent-facing summary of the current month.
type QuotaReport struct {
	AgentID                 string `json:"agent_id"`
	PlanName                string `json:"plan_name"`
	Count                   int    `json:"count"`
	Limit                   int    `json:"limit"`
	Exceeded                bool   `json:"exceeded"`
	CanStartNewConversation bool   `json:"can_start_new_conversation"`
}

// QuotaService answers quota questions from stored conversations.
// Only agents have a quota: other users always count 0 against a limit of 0.
type QuotaService struct {
	log           *slog.Logger
	store         *repositories.Store
	users         repositories.IUserRepository
	catalog       repositories.ICatalogRepository
	conversations repositories.IConversationRepository
}

func NewQuotaService(log *slog.Logger, store *repositories.Store,
	users repositories.IUserRepository, catalog repositories.ICatalogRepository,
	conversations repositories.IConversationRepository) *QuotaService {
	return &QuotaService{log: log, store: store, users: users, catalog: catalog, conversations: conversations}
}

func (s *QuotaService) MonthlyPropertyCount(agentID string, asOf time.Time) (int, error) {
	usage, err := s.usage(agentID, asOf)
	return usage.Count(), err
}

func (s *QuotaService) MonthlyPropertyLimit(agentID string) (int, error) {
	var limit int
	err := s.store.View(func(txn *badger.Txn) error {
		user, err := s.users.GetUser(txn, agentID)
		if err != nil {
			return err
		}
		limit, _, err = s.limitInTx(txn, user)
		return err
	})
	return limit, err
}

// QuotaExceeded is false for non-agents, who are never subject to a quota.
func (s *QuotaService) QuotaExceeded(agentID string, asOf time.Time) (bool, error) {
	report, err := s.Report(agentID, asOf)
	return report.Exceeded, err
}

func (s *QuotaService) CanStartNewConversation(agentID string, asOf time.Time) (bool, error) {
	report, err := s.Report(agentID, asOf)
	return report.CanStartNewConversation, err
}

func (s *QuotaService) Report(agentID string, asOf time.Time) (QuotaReport, error) {
	report := QuotaReport{AgentID: agentID}
	err := s.store.View(func(txn *badger.Txn) error {
		user, err := s.users.GetUser(txn, agentID)
		if err != nil {
			return err
		}
		if !user.IsAgent() {
			return nil
		}
		limit, plan, err := s.limitInTx(txn, user)
		if err != nil {
			return err
		}
		usage, err := s.UsageInTx(txn, user, asOf)
		if err != nil {
			return err
		}
		report.PlanName = plan.Name
		report.Count = usage.Count()
		report.Limit = limit
		report.Exceeded = usage.Exceeded()
		report.CanStartNewConversation = user.MembershipPlanID != nil && usage.Count() < limit
		return nil
	})
	return report, err
}

// UsageInTx reads the agent's usage for the month of asOf inside txn.
// Read-write callers get the month guard key in their read set, so two
// concurrent quota-checked inserts for the same agent cannot both commit.
func (s *QuotaService) UsageInTx(txn *badger.Txn, agent domain.User, asOf time.Time) (domain.QuotaUsage, error) {
	if !agent.IsAgent() {
		return domain.NewQuotaUsage(nil, 0), nil
	}
	limit, _, err := s.limitInTx(txn, agent)
	if err != nil {
		return domain.QuotaUsage{}, err
	}
	propertyIDs, err := s.conversations.MonthlyPropertyIDs(txn, agent.ID, domain.MonthOf(asOf))
	if err != nil {
		return domain.QuotaUsage{}, err
	}
	return domain.NewQuotaUsage(propertyIDs, limit), nil
}

func (s *QuotaService) usage(agentID string, asOf time.Time) (domain.QuotaUsage, error) {
	var usage domain.QuotaUsage
	err := s.store.View(func(txn *badger.Txn) error {
		user, err := s.users.GetUser(txn, agentID)
		if err != nil {
			return err
		}
		usage, err = s.UsageInTx(txn, user, asOf)
		return err
	})
	return usage, err
}

// limitInTx returns 0 when the user has no plan or the plan disappeared.
func (s *QuotaService) limitInTx(txn *badger.Txn, user domain.User) (int, domain.MembershipPlan, error) {
	if !user.IsAgent() || user.MembershipPlanID == nil {
		return 0, domain.MembershipPlan{}, nil
	}
	plan, err := s.catalog.GetPlan(txn, *user.MembershipPlanID)
	if errors.Is(err, errors.ErrNotFound) {
		s.log.Warn("Agent plan is missing", "agent_id", user.ID, "plan_id", *user.MembershipPlanID)
		return 0, domain.MembershipPlan{}, nil
	}
	if err != nil {
		return 0, domain.MembershipPlan{}, err
	}
	return plan.MonthlyPropertyLimit, plan, nil
}
