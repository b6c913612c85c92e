package tx

import (
	"context"
	"sync"
)

type memoryTxKey struct{}

// InMemoryRunner serializes units of work over the in-memory stores with one mutex.
// Stores register undo callbacks through OnRollback, which the runner replays
// when the unit of work fails.
type InMemoryRunner struct {
	mu sync.Mutex
}

func NewInMemoryRunner() *InMemoryRunner {
	return &InMemoryRunner{}
}

// RunInTx runs fn while holding the lock. Nested calls reuse the held lock
// and the outer journal.
func (r *InMemoryRunner) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) == r {
		return fn(ctx)
	}
	txCtx, journal := Open(context.WithValue(ctx, memoryTxKey{}, r))
	err := func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if err := fn(txCtx); err != nil {
			journal.Rollback()
			return err
		}
		return nil
	}()
	if err != nil {
		return err
	}
	journal.Commit()
	return nil
}
