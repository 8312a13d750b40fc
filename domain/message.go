package domain

import (
	"strings"
	"time"
)

const MaxMessageLength = 1000

// Message is immutable once stored, except for the one-way read transition.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string `validate:"max=1000"`
	ReadAt         *time.Time
	CreatedAt      time.Time
}

func (m Message) Validate() error {
	errs := checkStruct(m)
	if strings.TrimSpace(m.Content) == "" {
		errs.Add("content", "can't be blank")
	}
	return errs.Err()
}

func (m Message) IsRead() bool { return m.ReadAt != nil }

// MarkAsRead reports whether the message changed.
func (m *Message) MarkAsRead(now time.Time) bool {
	if m.IsRead() {
		return false
	}
	m.ReadAt = &now
	return true
}

// UnreadFor tells whether the message still waits to be read by userID.
func (m Message) UnreadFor(userID string) bool {
	return m.SenderID != userID && !m.IsRead()
}

func (m Message) FormattedTime() string {
	return m.CreatedAt.Format("15:04")
}

// FormattedDate is relative to now for the last two days, month/day otherwise.
func (m Message) FormattedDate(now time.Time) string {
	y, mo, d := m.CreatedAt.In(now.Location()).Date()
	created := time.Date(y, mo, d, 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case created.Equal(today):
		return "Today"
	case created.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return m.CreatedAt.Format("01/02")
	}
}
