// Package server exposes the services as a JSON API and the broadcast
// gateway as a websocket endpoint. Handlers only decode, authorize the
// caller against the resource and encode: rules live in services.
package server

import (
	"estate-match/auth"
	"estate-match/contract"
	"estate-match/services"
	"log/slog"
	"net/http"
	"time"
)

type Server struct {
	log          *slog.Logger
	users        services.IAuthService
	catalog      services.ICatalogService
	quota        services.IQuotaService
	conversation services.IConversationService
	message      services.IMessageService
	inquiry      services.IInquiryService
	partnership  services.IPartnershipService
	registry     contract.IRegistry
	interceptor  auth.Interceptor
	clock        func() time.Time
}

// Services groups what the handlers call.
type Services struct {
	Auth         services.IAuthService
	Catalog      services.ICatalogService
	Quota        services.IQuotaService
	Conversation services.IConversationService
	Message      services.IMessageService
	Inquiry      services.IInquiryService
	Partnership  services.IPartnershipService
}

func NewServer(log *slog.Logger, svc Services, registry contract.IRegistry,
	interceptor auth.Interceptor, clock func() time.Time) *Server {
	return &Server{
		log:          log,
		users:        svc.Auth,
		catalog:      svc.Catalog,
		quota:        svc.Quota,
		conversation: svc.Conversation,
		message:      svc.Message,
		inquiry:      svc.Inquiry,
		partnership:  svc.Partnership,
		registry:     registry,
		interceptor:  interceptor,
		clock:        clock,
	}
}

// Handler returns the authenticated router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users", s.register)
	mux.HandleFunc("POST /api/sessions", s.login)

	mux.HandleFunc("GET /api/plans", s.listPlans)
	mux.HandleFunc("POST /api/plans", s.createPlan)
	mux.HandleFunc("POST /api/properties", s.createProperty)
	mux.HandleFunc("GET /api/properties/{id}", s.getProperty)

	mux.HandleFunc("GET /api/conversations", s.listConversations)
	mux.HandleFunc("POST /api/conversations", s.createConversation)
	mux.HandleFunc("GET /api/conversations/{id}", s.getConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.deleteConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", s.listMessages)
	mux.HandleFunc("POST /api/conversations/{id}/messages", s.createMessage)
	mux.HandleFunc("PATCH /api/conversations/{id}/messages/read", s.markConversationRead)
	mux.HandleFunc("PATCH /api/conversations/{id}/messages/{mid}/read", s.markMessageRead)

	mux.HandleFunc("GET /api/inquiries", s.listInquiries)
	mux.HandleFunc("POST /api/inquiries", s.createInquiry)
	mux.HandleFunc("PATCH /api/inquiries/{id}/start_conversation", s.startInquiryConversation)
	mux.HandleFunc("PATCH /api/inquiries/{id}/close", s.closeInquiry)

	mux.HandleFunc("GET /api/partnerships", s.listPartnerships)
	mux.HandleFunc("POST /api/partnerships", s.createPartnership)
	mux.HandleFunc("GET /api/partnerships/{id}", s.getPartnership)
	mux.HandleFunc("DELETE /api/partnerships/{id}", s.terminatePartnership)
	mux.HandleFunc("POST /api/partnerships/{id}/request", s.handlePartnershipRequest)
	mux.HandleFunc("PATCH /api/partnerships/{id}/approve", s.approvePartnership)
	mux.HandleFunc("PATCH /api/partnerships/{id}/reject", s.rejectPartnership)
	mux.HandleFunc("PATCH /api/admin/partnerships/{id}/toggle", s.togglePartnership)

	mux.HandleFunc("GET /api/agents/me/quota", s.quotaReport)

	mux.HandleFunc("GET /ws", s.subscribe)

	return s.interceptor.Wrap(mux)
}

// NewHTTPServer applies the timeouts every listener of the process uses.
func NewHTTPServer(address string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
