package services

import (
	"context"
	"estate-match/domain"
	"estate-match/errors"
	"estate-match/repositories"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// PartnershipAction is the action_type a party sends on a partnership.
type PartnershipAction string

const (
	ActionRequest   PartnershipAction = "request"
	ActionApprove   PartnershipAction = "approve"
	ActionCancel    PartnershipAction = "cancel"
	ActionDecline   PartnershipAction = "decline"
	ActionTerminate PartnershipAction = "terminate"
)

type IPartnershipService interface {
	Create(ctx context.Context, cmd CreatePartnershipCommand) (domain.Partnership, error)
	HandleRequest(ctx context.Context, id, actorID string, action PartnershipAction) (*domain.Partnership, error)
	Request(ctx context.Context, id, actorID string) (domain.Partnership, error)
	Approve(ctx context.Context, id, actorID string) (domain.Partnership, error)
	Reject(ctx context.Context, id, actorID string) (domain.Partnership, error)
	CancelRequest(ctx context.Context, id, actorID string) (domain.Partnership, error)
	Terminate(ctx context.Context, id, actorID string) (domain.Partnership, error)
	ToggleStatus(ctx context.Context, id, adminID string) (domain.Partnership, error)
	Get(id, userID string) (PartnershipView, error)
	ListForUser(userID string) ([]PartnershipView, error)
}

// CreatePartnershipCommand is sent by an agent or an owner. The counterpart
// fills the other slot. A non-empty Action is applied right after creation.
type CreatePartnershipCommand struct {
	ActorID        string
	CounterpartID  string
	CommissionRate float64
	Notes          string
	Action         PartnershipAction
}

// PartnershipView is a partnership as seen by one of its parties.
type PartnershipView struct {
	Partnership    domain.Partnership
	Agent          domain.User
	Owner          domain.User
	ApprovalStatus domain.MutualApprovalStatus
	DurationDays   int
}

type PartnershipService struct {
	log          *slog.Logger
	store        *repositories.Store
	users        repositories.IUserRepository
	partnerships repositories.IPartnershipRepository
	clock        func() time.Time
}

func NewPartnershipService(log *slog.Logger, store *repositories.Store,
	users repositories.IUserRepository, partnerships repositories.IPartnershipRepository,
	clock func() time.Time) *PartnershipService {
	return &PartnershipService{log: log, store: store, users: users, partnerships: partnerships, clock: clock}
}

func (s *PartnershipService) Create(ctx context.Context, cmd CreatePartnershipCommand) (domain.Partnership, error) {
	now := s.clock()
	var p domain.Partnership
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		actor, err := s.users.GetUser(txn, cmd.ActorID)
		if err != nil {
			return err
		}
		counterpart, err := s.users.GetUser(txn, cmd.CounterpartID)
		if errors.Is(err, errors.ErrNotFound) {
			return domain.Invalid("counterpart", "must exist", nil)
		}
		if err != nil {
			return err
		}
		var agent, owner domain.User
		switch {
		case actor.IsAgent():
			agent, owner = actor, counterpart
		case actor.IsOwner():
			agent, owner = counterpart, actor
		default:
			return fmt.Errorf("%w: only agents and owners enter partnerships", errors.ErrForbidden)
		}
		p = domain.NewPartnership(agent.ID, owner.ID, cmd.CommissionRate, cmd.Notes, now)
		if err = p.Validate(agent, owner); err != nil {
			return err
		}
		if p, err = s.partnerships.CreatePartnership(txn, p); err != nil {
			return err
		}
		if cmd.Action == "" {
			return nil
		}
		if cmd.Action != ActionRequest && cmd.Action != ActionApprove {
			return domain.Invalid("action_type", "is not included in the list", nil)
		}
		deleted, err := s.apply(&p, actor, cmd.Action, now)
		if err != nil || deleted {
			return err
		}
		return s.partnerships.SavePartnership(txn, p)
	})
	return p, err
}

// HandleRequest dispatches a party's action_type. It returns nil when the
// action removed the partnership.
func (s *PartnershipService) HandleRequest(ctx context.Context, id, actorID string, action PartnershipAction) (*domain.Partnership, error) {
	now := s.clock()
	var res *domain.Partnership
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		p, actor, err := s.loadForParty(txn, id, actorID)
		if err != nil {
			return err
		}
		deleted, err := s.apply(&p, actor, action, now)
		if err != nil {
			return err
		}
		if deleted {
			res = nil
			s.log.Info("Partnership removed", "partnership_id", p.ID, "actor_id", actorID)
			return s.partnerships.DeletePartnership(txn, p)
		}
		res = &p
		return s.partnerships.SavePartnership(txn, p)
	})
	return res, err
}

// apply runs one action on p and reports whether p must be deleted.
func (s *PartnershipService) apply(p *domain.Partnership, actor domain.User, action PartnershipAction, now time.Time) (bool, error) {
	switch action {
	case ActionRequest:
		return false, request(p, actor, now)
	case ActionApprove:
		// Approving means answering the counterpart's pending request.
		switch {
		case actor.IsAgent() && p.OwnerApproval.Requested:
			p.AgentRequest(now)
		case actor.IsOwner() && p.AgentApproval.Requested:
			p.OwnerRequest(now)
		default:
			return false, fmt.Errorf("%w: nothing to approve", errors.ErrInvalidTransition)
		}
		return false, nil
	case ActionCancel, ActionDecline:
		p.CancelRequest(actor)
		return false, nil
	case ActionTerminate:
		return true, nil
	}
	return false, domain.Invalid("action_type", "is not included in the list", nil)
}

func request(p *domain.Partnership, actor domain.User, now time.Time) error {
	switch {
	case actor.IsAgent():
		p.AgentRequest(now)
	case actor.IsOwner():
		p.OwnerRequest(now)
	default:
		return errors.ErrForbidden
	}
	return nil
}

func (s *PartnershipService) Request(ctx context.Context, id, actorID string) (domain.Partnership, error) {
	return s.transition(ctx, id, actorID, func(p *domain.Partnership, actor domain.User, now time.Time) error {
		return request(p, actor, now)
	})
}

func (s *PartnershipService) Approve(ctx context.Context, id, actorID string) (domain.Partnership, error) {
	return s.transition(ctx, id, actorID, func(p *domain.Partnership, actor domain.User, now time.Time) error {
		return p.Approve(actor, now)
	})
}

func (s *PartnershipService) Reject(ctx context.Context, id, actorID string) (domain.Partnership, error) {
	return s.transition(ctx, id, actorID, func(p *domain.Partnership, actor domain.User, now time.Time) error {
		return p.Reject(actor, now)
	})
}

func (s *PartnershipService) CancelRequest(ctx context.Context, id, actorID string) (domain.Partnership, error) {
	return s.transition(ctx, id, actorID, func(p *domain.Partnership, actor domain.User, _ time.Time) error {
		p.CancelRequest(actor)
		return nil
	})
}

func (s *PartnershipService) Terminate(ctx context.Context, id, actorID string) (domain.Partnership, error) {
	return s.transition(ctx, id, actorID, func(p *domain.Partnership, _ domain.User, now time.Time) error {
		p.Terminate(now)
		return nil
	})
}

// ToggleStatus is restricted to admins, who are not parties.
func (s *PartnershipService) ToggleStatus(ctx context.Context, id, adminID string) (domain.Partnership, error) {
	now := s.clock()
	var p domain.Partnership
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		admin, err := s.users.GetUser(txn, adminID)
		if err != nil {
			return err
		}
		if !admin.IsAdmin() {
			return errors.ErrForbidden
		}
		if p, err = s.partnerships.GetPartnership(txn, id); err != nil {
			return err
		}
		if err = p.ToggleStatus(now); err != nil {
			return err
		}
		return s.partnerships.SavePartnership(txn, p)
	})
	return p, err
}

// transition is the read-modify-write every party action goes through.
// A conflicting concurrent write makes the store replay it on fresh data,
// so simultaneous agent and owner requests both land.
func (s *PartnershipService) transition(ctx context.Context, id, actorID string,
	fn func(p *domain.Partnership, actor domain.User, now time.Time) error) (domain.Partnership, error) {
	now := s.clock()
	var p domain.Partnership
	err := s.store.Update(ctx, func(txn *badger.Txn) error {
		var (
			actor domain.User
			err   error
		)
		if p, actor, err = s.loadForParty(txn, id, actorID); err != nil {
			return err
		}
		if err = fn(&p, actor, now); err != nil {
			return err
		}
		return s.partnerships.SavePartnership(txn, p)
	})
	return p, err
}

func (s *PartnershipService) loadForParty(txn *badger.Txn, id, actorID string) (domain.Partnership, domain.User, error) {
	p, err := s.partnerships.GetPartnership(txn, id)
	if err != nil {
		return domain.Partnership{}, domain.User{}, err
	}
	if !p.IsParty(actorID) {
		return domain.Partnership{}, domain.User{}, errors.ErrForbidden
	}
	actor, err := s.users.GetUser(txn, actorID)
	return p, actor, err
}

func (s *PartnershipService) Get(id, userID string) (PartnershipView, error) {
	var view PartnershipView
	err := s.store.View(func(txn *badger.Txn) error {
		p, err := s.partnerships.GetPartnership(txn, id)
		if err != nil {
			return err
		}
		if !p.IsParty(userID) {
			return errors.ErrForbidden
		}
		view, err = s.view(txn, p, userID)
		return err
	})
	return view, err
}

func (s *PartnershipService) ListForUser(userID string) ([]PartnershipView, error) {
	var res []PartnershipView
	err := s.store.View(func(txn *badger.Txn) error {
		partnerships, err := s.partnerships.ListPartnershipsForUser(txn, userID)
		if err != nil {
			return err
		}
		for _, p := range partnerships {
			view, err := s.view(txn, p, userID)
			if err != nil {
				return err
			}
			res = append(res, view)
		}
		return nil
	})
	return res, err
}

func (s *PartnershipService) view(txn *badger.Txn, p domain.Partnership, userID string) (PartnershipView, error) {
	people, err := s.users.GetRoster(txn, p.AgentID, p.OwnerID, userID)
	if err != nil {
		return PartnershipView{}, err
	}
	agent, owner := people[p.AgentID], people[p.OwnerID]
	return PartnershipView{
		Partnership:    p,
		Agent:          agent,
		Owner:          owner,
		ApprovalStatus: p.MutualApprovalStatus(people[userID], agent, owner),
		DurationDays:   p.DurationDays(s.clock()),
	}, nil
}
