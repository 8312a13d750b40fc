package server

import (
	"estate-match/auth"
	"estate-match/domain"
	"estate-match/errors"
	"estate-match/services"
	"net/http"

	"github.com/samber/lo"
)

type createConversationRequest struct {
	Type       domain.ConversationType `json:"conversation_type"`
	PropertyID string                  `json:"property_id"`
	AgentID    string                  `json:"agent_id"`
	BuyerID    string                  `json:"buyer_id"`
	OwnerID    string                  `json:"owner_id"`
}

type messagePage struct {
	Messages []messageView `json:"messages"`
	Cursor   *string       `json:"cursor"`
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.conversation.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.clock()
	writeJSON(w, http.StatusOK, lo.Map(summaries, func(c services.ConversationSummary, _ int) conversationView {
		return toSummaryView(c, now)
	}))
}

// createConversation with only a property id lets an agent open, or reopen,
// its thread with the property's owner. A full body creates an explicit
// conversation the caller must be part of.
func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var body createConversationRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	userID := auth.UserID(r.Context())
	var (
		c   domain.Conversation
		err error
	)
	if body.Type == "" {
		c, err = s.conversation.StartAgentConversation(r.Context(), userID, body.PropertyID)
	} else {
		if !lo.Contains([]string{body.AgentID, body.BuyerID, body.OwnerID}, userID) {
			s.writeError(w, r, errors.ErrForbidden)
			return
		}
		c, err = s.conversation.Create(r.Context(), services.CreateConversationCommand(body))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConversationView(c))
}

// getConversation shows the thread and marks everything the reader received as read.
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, userID := r.PathValue("id"), auth.UserID(r.Context())
	summary, err := s.conversation.Summary(id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err = s.conversation.MarkAsReadFor(r.Context(), id, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	summary.UnreadCount = 0
	writeJSON(w, http.StatusOK, toSummaryView(summary, s.clock()))
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.conversation.Summary(id, auth.UserID(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.conversation.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.conversation.Summary(id, auth.UserID(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	cursor := lo.EmptyableToPtr(r.URL.Query().Get("cursor"))
	messages, next, err := s.message.List(id, cursor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.clock()
	writeJSON(w, http.StatusOK, messagePage{
		Messages: lo.Map(messages, func(m domain.Message, _ int) messageView { return toMessageView(m, now) }),
		Cursor:   next,
	})
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	message, err := s.message.Create(r.Context(), r.PathValue("id"), auth.UserID(r.Context()), body.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageView(message, s.clock()))
}

func (s *Server) markMessageRead(w http.ResponseWriter, r *http.Request) {
	message, err := s.message.MarkAsRead(r.Context(), r.PathValue("mid"), auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if message.ConversationID != r.PathValue("id") {
		s.writeError(w, r, errors.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toMessageView(message, s.clock()))
}

func (s *Server) markConversationRead(w http.ResponseWriter, r *http.Request) {
	id, userID := r.PathValue("id"), auth.UserID(r.Context())
	if _, err := s.conversation.Summary(id, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	marked, err := s.conversation.MarkAsReadFor(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": marked})
}

type createInquiryRequest struct {
	PropertyID string `json:"property_id"`
	AgentID    string `json:"agent_id"`
	Message    string `json:"message"`
}

func (s *Server) listInquiries(w http.ResponseWriter, r *http.Request) {
	inquiries, err := s.inquiry.ListForAgent(auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.clock()
	writeJSON(w, http.StatusOK, lo.Map(inquiries, func(i domain.Inquiry, _ int) inquiryView { return toInquiryView(i, now) }))
}

func (s *Server) createInquiry(w http.ResponseWriter, r *http.Request) {
	var body createInquiryRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, err)
		return
	}
	inquiry, err := s.inquiry.Create(r.Context(), auth.UserID(r.Context()), body.PropertyID, body.AgentID, body.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInquiryView(inquiry, s.clock()))
}

// startInquiryConversation is reserved to the agent the inquiry targets.
func (s *Server) startInquiryConversation(w http.ResponseWriter, r *http.Request) {
	inquiry, err := s.inquiry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if inquiry.AgentID != auth.UserID(r.Context()) {
		s.writeError(w, r, errors.ErrForbidden)
		return
	}
	c, err := s.inquiry.CreateConversation(r.Context(), inquiry.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationView(c))
}

func (s *Server) closeInquiry(w http.ResponseWriter, r *http.Request) {
	inquiry, err := s.inquiry.MarkClosed(r.Context(), r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInquiryView(inquiry, s.clock()))
}
