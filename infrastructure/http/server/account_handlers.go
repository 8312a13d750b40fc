package server

import (
	"estate-match/auth"
	"estate-match/domain"
	"estate-match/services"
	"net/http"

	"github.com/samber/lo"
)

type registerRequest struct {
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Password         string          `json:"password"`
	Type             domain.UserType `json:"user_type"`
	CompanyName      string          `json:"company_name"`
	LicenseNumber    string          `json:"license_number"`
	MembershipPlanID string          `json:"membership_plan_id"`
}

type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string    `json:"token"`
	User  *userView `json:"user,omitempty"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	token, user, err := s.users.Register(r.Context(), services.RegisterCommand(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token), User: lo.ToPtr(toUserView(user, true))})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	token, err := s.users.Login(body.Email, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

type planRequest struct {
	Name                 string   `json:"name"`
	MonthlyPropertyLimit int      `json:"monthly_property_limit"`
	MonthlyPrice         int      `json:"monthly_price"`
	Features             []string `json:"features"`
	Active               bool     `json:"active"`
	SortOrder            int      `json:"sort_order"`
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.catalog.ListActivePlans()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(plans, func(p domain.MembershipPlan, _ int) planView { return toPlanView(p) }))
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var body planRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	plan, err := s.catalog.CreatePlan(r.Context(), auth.UserID(r.Context()), domain.MembershipPlan{
		Name:                 body.Name,
		MonthlyPropertyLimit: body.MonthlyPropertyLimit,
		MonthlyPrice:         body.MonthlyPrice,
		Features:             body.Features,
		Active:               body.Active,
		SortOrder:            body.SortOrder,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanView(plan))
}

func (s *Server) createProperty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	property, err := s.catalog.CreateProperty(r.Context(), auth.UserID(r.Context()), body.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyView(property))
}

func (s *Server) getProperty(w http.ResponseWriter, r *http.Request) {
	property, err := s.catalog.GetProperty(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyView(property))
}

func (s *Server) quotaReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.quota.Report(auth.UserID(r.Context()), s.clock())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
