package server

import (
	"estate-match/domain"
	"estate-match/services"
	"time"

	"github.com/samber/lo"
)

type userView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Email       string          `json:"email,omitempty"`
	Type        domain.UserType `json:"user_type"`
	CompanyName string          `json:"company_name,omitempty"`
}

// toUserView hides the email of other users.
func toUserView(u domain.User, self bool) userView {
	v := userView{ID: u.ID, Name: u.Name, DisplayName: u.DisplayName(), Type: u.Type, CompanyName: u.CompanyName}
	if self {
		v.Email = u.Email
	}
	return v
}

type planView struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	MonthlyPropertyLimit int      `json:"monthly_property_limit"`
	MonthlyPrice         int      `json:"monthly_price"`
	FormattedPrice       string   `json:"formatted_price"`
	Features             []string `json:"features"`
	Active               bool     `json:"active"`
	SortOrder            int      `json:"sort_order"`
}

func toPlanView(p domain.MembershipPlan) planView {
	return planView{
		ID:                   p.ID,
		Name:                 p.Name,
		MonthlyPropertyLimit: p.MonthlyPropertyLimit,
		MonthlyPrice:         p.MonthlyPrice,
		FormattedPrice:       p.FormattedPrice(),
		Features:             lo.Ternary(p.Features == nil, []string{}, p.Features),
		Active:               p.Active,
		SortOrder:            p.SortOrder,
	}
}

type propertyView struct {
	ID      string                `json:"id"`
	OwnerID string                `json:"owner_id"`
	Title   string                `json:"title"`
	Status  domain.PropertyStatus `json:"status"`
}

func toPropertyView(p domain.Property) propertyView {
	return propertyView{ID: p.ID, OwnerID: p.OwnerID, Title: p.Title, Status: p.Status}
}

type messageView struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	FormattedTime  string     `json:"formatted_time"`
	FormattedDate  string     `json:"formatted_date"`
}

func toMessageView(m domain.Message, now time.Time) messageView {
	return messageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
		FormattedTime:  m.FormattedTime(),
		FormattedDate:  m.FormattedDate(now),
	}
}

type conversationView struct {
	ID                string                  `json:"id"`
	Type              domain.ConversationType `json:"conversation_type"`
	PropertyID        string                  `json:"property_id,omitempty"`
	AgentID           string                  `json:"agent_id,omitempty"`
	BuyerID           string                  `json:"buyer_id,omitempty"`
	OwnerID           string                  `json:"owner_id,omitempty"`
	InquiryID         string                  `json:"inquiry_id,omitempty"`
	Title             string                  `json:"title,omitempty"`
	OtherParticipants []userView              `json:"other_participants,omitempty"`
	UnreadCount       int                     `json:"unread_count"`
	LastMessage       *messageView            `json:"last_message,omitempty"`
	LastMessageAt     *time.Time              `json:"last_message_at"`
	CreatedAt         time.Time               `json:"created_at"`
}

func toConversationView(c domain.Conversation) conversationView {
	return conversationView{
		ID:            c.ID,
		Type:          c.Type(),
		PropertyID:    c.PropertyID,
		AgentID:       c.AgentID(),
		BuyerID:       c.BuyerID(),
		OwnerID:       c.OwnerID(),
		InquiryID:     c.InquiryID(),
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
}

func toSummaryView(s services.ConversationSummary, now time.Time) conversationView {
	v := toConversationView(s.Conversation)
	v.Title = s.Title
	v.UnreadCount = s.UnreadCount
	v.OtherParticipants = lo.Map(s.OtherParticipants, func(u domain.User, _ int) userView {
		return toUserView(u, false)
	})
	if s.LastMessage != nil {
		v.LastMessage = lo.ToPtr(toMessageView(*s.LastMessage, now))
	}
	return v
}

type inquiryView struct {
	ID                string               `json:"id"`
	PropertyID        string               `json:"property_id"`
	BuyerID           string               `json:"buyer_id"`
	AgentID           string               `json:"agent_id"`
	Message           string               `json:"message"`
	Status            domain.InquiryStatus `json:"status"`
	ResponseTimeHours float64              `json:"response_time_hours"`
	DaysSinceInquiry  int                  `json:"days_since_inquiry"`
	ContactedAt       *time.Time           `json:"contacted_at"`
	ClosedAt          *time.Time           `json:"closed_at"`
	CreatedAt         time.Time            `json:"created_at"`
}

func toInquiryView(i domain.Inquiry, now time.Time) inquiryView {
	return inquiryView{
		ID:                i.ID,
		PropertyID:        i.PropertyID,
		BuyerID:           i.BuyerID,
		AgentID:           i.AgentID,
		Message:           i.Message,
		Status:            i.Status,
		ResponseTimeHours: i.ResponseTimeHours(),
		DaysSinceInquiry:  i.DaysSinceInquiry(now),
		ContactedAt:       i.ContactedAt,
		ClosedAt:          i.ClosedAt,
		CreatedAt:         i.CreatedAt,
	}
}

type partnershipView struct {
	ID                      string                      `json:"id"`
	AgentID                 string                      `json:"agent_id"`
	OwnerID                 string                      `json:"owner_id"`
	CommissionRate          float64                     `json:"commission_rate"`
	FormattedCommissionRate string                      `json:"formatted_commission_rate"`
	Notes                   string                      `json:"notes,omitempty"`
	Status                  domain.PartnershipStatus    `json:"status"`
	AgentRequested          bool                        `json:"agent_requested"`
	OwnerRequested          bool                        `json:"owner_requested"`
	ApprovalStatus          domain.MutualApprovalStatus `json:"mutual_approval_status,omitempty"`
	DurationDays            int                         `json:"duration_days"`
	StartedAt               *time.Time                  `json:"started_at"`
	EndedAt                 *time.Time                  `json:"ended_at"`
	Agent                   *userView                   `json:"agent,omitempty"`
	Owner                   *userView                   `json:"owner,omitempty"`
}

func toPartnershipView(p domain.Partnership, now time.Time) partnershipView {
	return partnershipView{
		ID:                      p.ID,
		AgentID:                 p.AgentID,
		OwnerID:                 p.OwnerID,
		CommissionRate:          p.CommissionRate,
		FormattedCommissionRate: p.FormattedCommissionRate(),
		Notes:                   p.Notes,
		Status:                  p.Status,
		AgentRequested:          p.AgentApproval.Requested,
		OwnerRequested:          p.OwnerApproval.Requested,
		DurationDays:            p.DurationDays(now),
		StartedAt:               p.StartedAt,
		EndedAt:                 p.EndedAt,
	}
}

func toPartnershipDetailView(v services.PartnershipView, now time.Time) partnershipView {
	res := toPartnershipView(v.Partnership, now)
	res.ApprovalStatus = v.ApprovalStatus
	res.Agent = lo.ToPtr(toUserView(v.Agent, false))
	res.Owner = lo.ToPtr(toUserView(v.Owner, false))
	return res
}
