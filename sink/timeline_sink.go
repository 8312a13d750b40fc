package sink

import (
	"context"
	"estate-match/domain/event"
)

// Timeline buffers broadcasts for an in-process reader, for instance a
// long-poll handler or a test. When the buffer is full the broadcast waits
// for the caller's deadline and is then dropped.
type Timeline struct {
	Broadcasts chan event.Broadcast
}

func NewTimeline(bufferSize int) *Timeline {
	return &Timeline{Broadcasts: make(chan event.Broadcast, bufferSize)}
}

func (t *Timeline) Consume(ctx context.Context, b event.Broadcast) error {
	select {
	case t.Broadcasts <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain returns what is buffered right now without waiting.
func (t *Timeline) Drain() []event.Broadcast {
	var res []event.Broadcast
	for {
		select {
		case b := <-t.Broadcasts:
			res = append(res, b)
		default:
			return res
		}
	}
}
