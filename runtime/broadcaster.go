// Package runtime carries events from the write path to live subscribers.
// It holds no business rules: what to publish is decided by the handlers
// registered on the Pipeline.
package runtime

import (
	"context"
	"estate-match/contract"
	"estate-match/domain/event"
	"estate-match/errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Broadcaster delivers a broadcast to every sink of its topic, at most once.
// Each sink gets its own goroutine and sinkTimeout; a slow subscriber never
// holds back the others.
type Broadcaster struct {
	log         *slog.Logger
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, sinkTimeout time.Duration) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, sinkTimeout: sinkTimeout}
}

// Publish waits for every delivery to finish or time out and reports the
// failed ones. A topic without subscribers is not an error.
func (b *Broadcaster) Publish(ctx context.Context, broadcast event.Broadcast) error {
	sinks := b.registry.GetSinksForTopic(broadcast.Topic())
	if len(sinks) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, sink := range sinks {
		wg.Add(1)
		go func(s contract.EventSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
			defer cancel()
			if err := s.Consume(sinkCtx, broadcast); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(sink)
	}
	wg.Wait()

	if len(errs) > 0 {
		b.log.Debug("Broadcast partially delivered", "topic", broadcast.Topic(), "failed", len(errs), "sinks", len(sinks))
		return fmt.Errorf("%w: %w", errors.ErrBroadcastUnavailable, errors.Join(errs...))
	}
	return nil
}
