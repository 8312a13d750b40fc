package runtime

import (
	"bytes"
	"context"
	"estate-match/contract"
	"estate-match/domain/event"
	"estate-match/repositories"
	"html/template"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// ConversationTimestampUpdater bumps lastMessageAt in the message's transaction.
type ConversationTimestampUpdater struct {
	conversations repositories.IConversationRepository
}

func NewConversationTimestampUpdater(conversations repositories.IConversationRepository) ConversationTimestampUpdater {
	return ConversationTimestampUpdater{conversations: conversations}
}

func (u ConversationTimestampUpdater) HandleInTx(txn *badger.Txn, evt event.Event) error {
	created, ok := evt.(event.MessageCreated)
	if !ok {
		return nil
	}
	c := created.Conversation
	c.UpdateLastMessageTime(created.At)
	return u.conversations.SaveConversation(txn, c)
}

var messageTemplate = template.Must(template.New("message").Parse(
	`<div class="message" id="message-{{.ID}}" data-sender-id="{{.SenderID}}">` +
		`<div class="message-sender">{{.SenderName}}</div>` +
		`<div class="message-content">{{.Content}}</div>` +
		`<div class="message-time" title="{{.FormattedDate}}">{{.FormattedTime}}</div>` +
		`</div>`))

// BroadcastPublisher turns committed events into topic broadcasts.
// Delivery problems are logged and dropped: the message is already stored.
type BroadcastPublisher struct {
	log       *slog.Logger
	publisher contract.IPublisher
	clock     func() time.Time
}

func NewBroadcastPublisher(log *slog.Logger, publisher contract.IPublisher, clock func() time.Time) BroadcastPublisher {
	return BroadcastPublisher{log: log, publisher: publisher, clock: clock}
}

func (b BroadcastPublisher) HandleAfterCommit(ctx context.Context, evt event.Event) {
	switch e := evt.(type) {
	case event.MessageCreated:
		for _, broadcast := range b.newMessageBroadcasts(e) {
			b.publish(ctx, broadcast)
		}
	case event.MessageRead:
		b.publish(ctx, event.ReadReceipt{
			ConversationID: e.Conversation.ID,
			Type:           event.MessageReadType,
			MessageID:      e.Message.ID,
			ReadAt:         lo.FromPtr(e.Message.ReadAt),
			ReaderID:       e.ReaderID,
		})
	}
}

// newMessageBroadcasts builds one broadcast for the conversation topic and one
// notification per participant other than the sender.
func (b BroadcastPublisher) newMessageBroadcasts(e event.MessageCreated) []event.Broadcast {
	data := event.MessageData{
		ID:            e.Message.ID,
		Content:       e.Message.Content,
		SenderID:      e.Message.SenderID,
		SenderName:    e.People[e.Message.SenderID].Name,
		FormattedTime: e.Message.FormattedTime(),
		FormattedDate: e.Message.FormattedDate(b.clock()),
		CreatedAt:     e.Message.CreatedAt,
	}
	var html bytes.Buffer
	if err := messageTemplate.Execute(&html, data); err != nil {
		b.log.Error("Unable to render message", "message_id", data.ID, "error", err)
	}

	broadcasts := []event.Broadcast{event.ConversationMessage{
		ConversationID: e.Conversation.ID,
		Type:           event.NewMessageType,
		Message:        data,
		MessageHTML:    html.String(),
	}}
	recipients := lo.Without(e.Conversation.Participants(), e.Message.SenderID)
	for _, recipientID := range recipients {
		broadcasts = append(broadcasts, event.UserNotification{
			RecipientID:       recipientID,
			Type:              event.NewMessageType,
			ConversationID:    e.Conversation.ID,
			Message:           data,
			SenderName:        data.SenderName,
			ConversationTitle: e.Conversation.DisplayTitle(recipientID, e.People, e.Property),
		})
	}
	return broadcasts
}

func (b BroadcastPublisher) publish(ctx context.Context, broadcast event.Broadcast) {
	if err := b.publisher.Publish(ctx, broadcast); err != nil {
		b.log.Warn("Broadcast not delivered", "topic", broadcast.Topic(), "error", err)
	}
}
