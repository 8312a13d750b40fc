package domain

import (
	"math"
	"time"
)

type InquiryStatus string

const (
	InquiryPending   InquiryStatus = "pending"
	InquiryContacted InquiryStatus = "contacted"
	InquiryClosed    InquiryStatus = "closed"
)

// Inquiry is a buyer's first contact to an agent about a property.
type Inquiry struct {
	ID          string
	PropertyID  string `validate:"required"`
	BuyerID     string `validate:"required"`
	AgentID     string `validate:"required"`
	Message     string `validate:"required,max=2000"`
	Status      InquiryStatus
	ContactedAt *time.Time
	ClosedAt    *time.Time
	CreatedAt   time.Time
}

func NewInquiry(propertyID, buyerID, agentID, message string, now time.Time) Inquiry {
	return Inquiry{
		PropertyID: propertyID,
		BuyerID:    buyerID,
		AgentID:    agentID,
		Message:    message,
		Status:     InquiryPending,
		CreatedAt:  now,
	}
}

func (i Inquiry) Validate(buyer, agent User) error {
	errs := checkStruct(i)
	if buyer.ID != "" && !buyer.IsBuyer() {
		errs.Add("buyer", "must be a buyer")
	}
	if agent.ID != "" && !agent.IsAgent() {
		errs.Add("agent", "must be an agent")
	}
	return errs.Err()
}

func (i *Inquiry) MarkContacted(now time.Time) {
	i.Status = InquiryContacted
	i.ContactedAt = &now
}

func (i *Inquiry) MarkClosed(now time.Time) {
	i.Status = InquiryClosed
	i.ClosedAt = &now
}

// ResponseTimeHours is the delay before the agent made contact, to one decimal.
func (i Inquiry) ResponseTimeHours() float64 {
	if i.ContactedAt == nil {
		return 0
	}
	hours := i.ContactedAt.Sub(i.CreatedAt).Hours()
	return math.Round(hours*10) / 10
}

func (i Inquiry) DaysSinceInquiry(now time.Time) int {
	return int(math.Round(now.Sub(i.CreatedAt).Hours() / 24))
}
