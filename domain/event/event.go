package event

import (
	"estate-match/domain"
	"fmt"
	"time"
)

const (
	NewMessageType  = "new_message"
	MessageReadType = "message_read"
)

// Event is what the write path hands to the runtime pipeline.
type Event interface {
	ConversationID() string
}

// MessageCreated is raised once a message has been accepted for storage.
// People and Property are loaded in the same transaction so that handlers
// running after commit do not read storage again.
type MessageCreated struct {
	Message      domain.Message
	Conversation domain.Conversation
	People       domain.Roster
	Property     *domain.Property
	At           time.Time
}

func (e MessageCreated) ConversationID() string { return e.Conversation.ID }

// MessageRead is raised when a single message flips to read.
type MessageRead struct {
	Message      domain.Message
	Conversation domain.Conversation
	ReaderID     string
}

func (e MessageRead) ConversationID() string { return e.Conversation.ID }

func ConversationTopic(conversationID string) string {
	return fmt.Sprintf("conversation_%s", conversationID)
}

func UserNotificationsTopic(userID string) string {
	return fmt.Sprintf("user_notifications_%s", userID)
}

// Broadcast is what subscribers of a topic receive.
type Broadcast interface {
	Topic() string
}

type MessageData struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	SenderID      string    `json:"sender_id"`
	SenderName    string    `json:"sender_name"`
	FormattedTime string    `json:"formatted_time"`
	FormattedDate string    `json:"formatted_date"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConversationMessage goes to every subscriber of the conversation topic.
type ConversationMessage struct {
	ConversationID string      `json:"-"`
	Type           string      `json:"type"`
	Message        MessageData `json:"message"`
	MessageHTML    string      `json:"message_html"`
}

func (c ConversationMessage) Topic() string { return ConversationTopic(c.ConversationID) }

// UserNotification goes to one recipient's personal topic.
type UserNotification struct {
	RecipientID       string      `json:"-"`
	Type              string      `json:"type"`
	ConversationID    string      `json:"conversation_id"`
	Message           MessageData `json:"message"`
	SenderName        string      `json:"sender_name"`
	ConversationTitle string      `json:"conversation_title"`
}

func (u UserNotification) Topic() string { return UserNotificationsTopic(u.RecipientID) }

type ReadReceipt struct {
	ConversationID string    `json:"-"`
	Type           string    `json:"type"`
	MessageID      string    `json:"message_id"`
	ReadAt         time.Time `json:"read_at"`
	ReaderID       string    `json:"reader_id"`
}

func (r ReadReceipt) Topic() string { return ConversationTopic(r.ConversationID) }
