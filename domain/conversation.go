package domain

import (
	"estate-match/errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

type ConversationType string

const (
	// BuyerOwnerType is kept for reading conversations created before agents existed.
	BuyerOwnerType        ConversationType = "buyer_owner"
	AgentOwnerType        ConversationType = "agent_owner"
	AgentBuyerInquiryType ConversationType = "agent_buyer_inquiry"
)

// Role is the slot a user occupies in a conversation.
type Role string

const (
	RoleNone  Role = ""
	RoleAgent Role = "agent"
	RoleBuyer Role = "buyer"
	RoleOwner Role = "owner"
)

// Parties is the sum of the three conversation shapes. Each variant carries
// only the participants its type requires.
type Parties interface {
	Type() ConversationType
	// Participants lists user ids in a stable order.
	Participants() []string
	RoleOf(userID string) Role
	isParties()
}

type AgentOwner struct {
	AgentID string
	OwnerID string
}

type AgentBuyerInquiry struct {
	AgentID   string
	BuyerID   string
	OwnerID   string
	InquiryID string
}

type BuyerOwner struct {
	BuyerID string
	OwnerID string
}

func (AgentOwner) Type() ConversationType        { return AgentOwnerType }
func (AgentBuyerInquiry) Type() ConversationType { return AgentBuyerInquiryType }
func (BuyerOwner) Type() ConversationType        { return BuyerOwnerType }

func (p AgentOwner) Participants() []string        { return []string{p.AgentID, p.OwnerID} }
func (p AgentBuyerInquiry) Participants() []string { return []string{p.AgentID, p.BuyerID, p.OwnerID} }
func (p BuyerOwner) Participants() []string        { return []string{p.BuyerID, p.OwnerID} }

func (p AgentOwner) RoleOf(userID string) Role {
	switch userID {
	case p.AgentID:
		return RoleAgent
	case p.OwnerID:
		return RoleOwner
	}
	return RoleNone
}

func (p AgentBuyerInquiry) RoleOf(userID string) Role {
	switch userID {
	case p.AgentID:
		return RoleAgent
	case p.BuyerID:
		return RoleBuyer
	case p.OwnerID:
		return RoleOwner
	}
	return RoleNone
}

func (p BuyerOwner) RoleOf(userID string) Role {
	switch userID {
	case p.BuyerID:
		return RoleBuyer
	case p.OwnerID:
		return RoleOwner
	}
	return RoleNone
}

func (AgentOwner) isParties()        {}
func (AgentBuyerInquiry) isParties() {}
func (BuyerOwner) isParties()        {}

type Conversation struct {
	ID            string
	Parties       Parties
	PropertyID    string
	LastMessageAt *time.Time
	CreatedAt     time.Time
}

func (c Conversation) Type() ConversationType { return c.Parties.Type() }

func (c Conversation) Participants() []string { return c.Parties.Participants() }

func (c Conversation) IsParticipant(userID string) bool {
	return c.Parties.RoleOf(userID) != RoleNone
}

// AgentID returns the agent slot, empty for buyer_owner conversations.
func (c Conversation) AgentID() string {
	switch p := c.Parties.(type) {
	case AgentOwner:
		return p.AgentID
	case AgentBuyerInquiry:
		return p.AgentID
	}
	return ""
}

func (c Conversation) BuyerID() string {
	switch p := c.Parties.(type) {
	case AgentBuyerInquiry:
		return p.BuyerID
	case BuyerOwner:
		return p.BuyerID
	}
	return ""
}

func (c Conversation) OwnerID() string {
	switch p := c.Parties.(type) {
	case AgentOwner:
		return p.OwnerID
	case AgentBuyerInquiry:
		return p.OwnerID
	case BuyerOwner:
		return p.OwnerID
	}
	return ""
}

func (c Conversation) InquiryID() string {
	if p, ok := c.Parties.(AgentBuyerInquiry); ok {
		return p.InquiryID
	}
	return ""
}

// Tuple is the uniqueness key (property, buyer, owner, agent). Absent slots are empty.
type Tuple struct {
	PropertyID string
	BuyerID    string
	OwnerID    string
	AgentID    string
}

func (c Conversation) Tuple() Tuple {
	return Tuple{
		PropertyID: c.PropertyID,
		BuyerID:    c.BuyerID(),
		OwnerID:    c.OwnerID(),
		AgentID:    c.AgentID(),
	}
}

// OtherParticipants resolves who the current user is talking to.
// Non-participants get nothing back.
func (c Conversation) OtherParticipants(userID string) []string {
	role := c.Parties.RoleOf(userID)
	switch p := c.Parties.(type) {
	case AgentOwner:
		switch role {
		case RoleAgent:
			return []string{p.OwnerID}
		case RoleOwner:
			return []string{p.AgentID}
		}
	case AgentBuyerInquiry:
		switch role {
		case RoleAgent:
			return []string{p.BuyerID, p.OwnerID}
		case RoleBuyer, RoleOwner:
			return []string{p.AgentID}
		}
	case BuyerOwner:
		switch role {
		case RoleBuyer:
			return []string{p.OwnerID}
		case RoleOwner:
			return []string{p.BuyerID}
		}
	}
	return nil
}

// Roster holds the users referenced by a conversation, keyed by id.
type Roster map[string]User

func NewRoster(users ...User) Roster {
	return lo.KeyBy(users, func(u User) string { return u.ID })
}

// Validate checks participant types per variant. Quota and uniqueness
// need stored state and are checked by ValidateQuota and the repository.
func (c Conversation) Validate(people Roster) error {
	var errs ValidationErrors
	requireType := func(field, id string, want UserType) {
		if id == "" {
			errs.Add(field, "must exist")
			return
		}
		u, ok := people[id]
		if !ok {
			errs.Add(field, "must exist")
			return
		}
		if u.Type != want {
			errs.Add(field, "must be "+want.withArticle())
		}
	}
	switch p := c.Parties.(type) {
	case AgentOwner:
		requireType("agent", p.AgentID, Agent)
		requireType("owner", p.OwnerID, Owner)
	case AgentBuyerInquiry:
		requireType("agent", p.AgentID, Agent)
		requireType("buyer", p.BuyerID, Buyer)
		requireType("owner", p.OwnerID, Owner)
		if p.InquiryID == "" {
			errs.Add("inquiry", "must exist")
		}
	case BuyerOwner:
		if _, ok := people[p.BuyerID]; p.BuyerID == "" || !ok {
			errs.Add("buyer", "must exist")
		}
		if _, ok := people[p.OwnerID]; p.OwnerID == "" || !ok {
			errs.Add("owner", "must exist")
		}
	case nil:
		errs.Add("conversation_type", "can't be blank")
	}
	return errs.Err()
}

// ValidateInquiry checks that an agent_buyer_inquiry conversation is built from
// inquiry: same agent, same buyer, same property. Other types are not concerned.
func (c Conversation) ValidateInquiry(inquiry Inquiry) error {
	p, ok := c.Parties.(AgentBuyerInquiry)
	if !ok {
		return nil
	}
	var errs ValidationErrors
	if inquiry.ID != p.InquiryID {
		errs.Add("inquiry", "must exist")
		return errs.Err()
	}
	if inquiry.AgentID != p.AgentID {
		errs.Add("agent", "must be the agent the inquiry was sent to")
	}
	if inquiry.BuyerID != p.BuyerID {
		errs.Add("buyer", "must be the buyer who sent the inquiry")
	}
	if inquiry.PropertyID != c.PropertyID {
		errs.Add("property", "must be the property of the inquiry")
	}
	return errs.Err()
}

// ValidateQuota applies the agent's monthly limit to agent_owner conversations.
// usage must describe the month the conversation is created in.
func (c Conversation) ValidateQuota(usage QuotaUsage) error {
	if c.Type() != AgentOwnerType {
		return nil
	}
	if usage.Admits(c.PropertyID) {
		return nil
	}
	return Invalid(BaseField, QuotaExceededMessage(usage.Limit), errors.ErrQuotaExceeded)
}

// DisplayTitle labels the conversation for the given reader.
func (c Conversation) DisplayTitle(currentUserID string, people Roster, property *Property) string {
	name := func(id string) string { return people[id].DisplayName() }
	var label string
	switch p := c.Parties.(type) {
	case AgentOwner:
		switch p.RoleOf(currentUserID) {
		case RoleAgent:
			label = fmt.Sprintf("%s (owner)", name(p.OwnerID))
		case RoleOwner:
			label = fmt.Sprintf("%s (agent)", name(p.AgentID))
		}
	case AgentBuyerInquiry:
		switch p.RoleOf(currentUserID) {
		case RoleAgent:
			label = fmt.Sprintf("Inquiry from %s", name(p.BuyerID))
		case RoleBuyer:
			label = fmt.Sprintf("%s (agent)", name(p.AgentID))
		case RoleOwner:
			label = fmt.Sprintf("%s with %s", name(p.AgentID), name(p.BuyerID))
		}
	case BuyerOwner:
		if others := c.OtherParticipants(currentUserID); len(others) == 1 {
			label = name(others[0])
		}
	}
	switch {
	case property == nil:
		if label == "" {
			return "Conversation"
		}
		return label
	case label == "":
		return property.Title
	default:
		return fmt.Sprintf("%s - %s", label, property.Title)
	}
}

func (c *Conversation) UpdateLastMessageTime(now time.Time) {
	c.LastMessageAt = &now
}
