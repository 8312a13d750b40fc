package sink

import (
	"context"
	"estate-match/domain/event"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeline_Consume_And_Drain(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(2)
	first := event.ConversationMessage{ConversationID: "c1", Type: event.NewMessageType}
	second := event.UserNotification{RecipientID: "u1", Type: event.NewMessageType}

	req.NoError(timeline.Consume(context.Background(), first))
	req.NoError(timeline.Consume(context.Background(), second))

	req.Equal([]event.Broadcast{first, second}, timeline.Drain())
	req.Empty(timeline.Drain())
}

func TestTimeline_Full_Buffer_Times_Out(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(1)
	req.NoError(timeline.Consume(context.Background(), event.ConversationMessage{ConversationID: "c1"}))

	// Given the buffer is full
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// When another broadcast arrives
	err := timeline.Consume(ctx, event.ConversationMessage{ConversationID: "c1"})

	// Then it is dropped once the deadline passes
	req.ErrorIs(err, context.DeadlineExceeded)
	req.Len(timeline.Drain(), 1)
}
