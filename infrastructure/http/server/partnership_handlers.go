package server

import (
	"context"
	"estate-match/auth"
	"estate-match/domain"
	"estate-match/services"
	"net/http"

	"github.com/samber/lo"
)

type createPartnershipRequest struct {
	CounterpartID  string                     `json:"counterpart_id"`
	CommissionRate float64                    `json:"commission_rate"`
	Notes          string                     `json:"notes"`
	Action         services.PartnershipAction `json:"action_type"`
}

func (s *Server) listPartnerships(w http.ResponseWriter, r *http.Request) {
	views, err := s.partnership.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.clock()
	writeJSON(w, http.StatusOK, lo.Map(views, func(v services.PartnershipView, _ int) partnershipView {
		return toPartnershipDetailView(v, now)
	}))
}

func (s *Server) createPartnership(w http.ResponseWriter, r *http.Request) {
	var body createPartnershipRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	p, err := s.partnership.Create(r.Context(), services.CreatePartnershipCommand{
		ActorID:        auth.UserID(r.Context()),
		CounterpartID:  body.CounterpartID,
		CommissionRate: body.CommissionRate,
		Notes:          body.Notes,
		Action:         body.Action,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPartnershipView(p, s.clock()))
}

func (s *Server) getPartnership(w http.ResponseWriter, r *http.Request) {
	view, err := s.partnership.Get(r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartnershipDetailView(view, s.clock()))
}

// handlePartnershipRequest answers 204 when the action removed the partnership.
func (s *Server) handlePartnershipRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action services.PartnershipAction `json:"action_type"`
	}
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	p, err := s.partnership.HandleRequest(r.Context(), r.PathValue("id"), auth.UserID(r.Context()), body.Action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toPartnershipView(*p, s.clock()))
}

type partnershipTransition func(ctx context.Context, id, actorID string) (domain.Partnership, error)

func (s *Server) transition(fn partnershipTransition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := fn(r.Context(), r.PathValue("id"), auth.UserID(r.Context()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPartnershipView(p, s.clock()))
	}
}

func (s *Server) approvePartnership(w http.ResponseWriter, r *http.Request) {
	s.transition(s.partnership.Approve)(w, r)
}

func (s *Server) rejectPartnership(w http.ResponseWriter, r *http.Request) {
	s.transition(s.partnership.Reject)(w, r)
}

func (s *Server) terminatePartnership(w http.ResponseWriter, r *http.Request) {
	s.transition(s.partnership.Terminate)(w, r)
}

func (s *Server) togglePartnership(w http.ResponseWriter, r *http.Request) {
	s.transition(s.partnership.ToggleStatus)(w, r)
}
