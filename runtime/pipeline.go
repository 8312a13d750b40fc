package runtime

import (
	"context"
	"estate-match/domain/event"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// TxHandler reacts to an event inside the transaction that produced it.
// Returning an error rolls the whole write back.
type TxHandler interface {
	HandleInTx(txn *badger.Txn, evt event.Event) error
}

// AfterCommitHandler reacts once the write is durable. It has no way to
// fail the write and is expected to log its own problems.
type AfterCommitHandler interface {
	HandleAfterCommit(ctx context.Context, evt event.Event)
}

// Pipeline is the explicit list of side effects of the message write path.
type Pipeline struct {
	log         *slog.Logger
	inTx        []TxHandler
	afterCommit []AfterCommitHandler
}

func NewPipeline(log *slog.Logger) *Pipeline {
	return &Pipeline{log: log}
}

func (p *Pipeline) InTx(handlers ...TxHandler) *Pipeline {
	p.inTx = append(p.inTx, handlers...)
	return p
}

func (p *Pipeline) AfterCommit(handlers ...AfterCommitHandler) *Pipeline {
	p.afterCommit = append(p.afterCommit, handlers...)
	return p
}

// DispatchInTx runs the transactional handlers in registration order and
// stops at the first failure.
func (p *Pipeline) DispatchInTx(txn *badger.Txn, evt event.Event) error {
	for _, h := range p.inTx {
		if err := h.HandleInTx(txn, evt); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) DispatchAfterCommit(ctx context.Context, evt event.Event) {
	for _, h := range p.afterCommit {
		h.HandleAfterCommit(ctx, evt)
	}
	p.log.Debug("Event dispatched", "conversation_id", evt.ConversationID(), "handlers", len(p.afterCommit))
}
