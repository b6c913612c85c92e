package tx

import "context"

type journalKey struct{}

// Journal collects callbacks for the outcome of one unit of work.
// Runners open it at the outermost RunInTx and settle it once fn returns.
type Journal struct {
	undo        []func()
	afterCommit []func()
}

// Open attaches a fresh journal to ctx.
func Open(ctx context.Context) (context.Context, *Journal) {
	j := &Journal{}
	return context.WithValue(ctx, journalKey{}, j), j
}

// OnRollback registers fn to restore in-memory state if the unit of work fails.
// Outside a unit of work the write is already final and fn is dropped.
func OnRollback(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*Journal); ok {
		j.undo = append(j.undo, fn)
	}
}

// AfterCommit defers fn until the unit of work commits. Outside a unit of
// work fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*Journal); ok {
		j.afterCommit = append(j.afterCommit, fn)
		return
	}
	fn()
}

// Rollback runs the undo callbacks newest first.
func (j *Journal) Rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo, j.afterCommit = nil, nil
}

// Commit runs the after-commit callbacks in registration order.
func (j *Journal) Commit() {
	for _, fn := range j.afterCommit {
		fn()
	}
	j.undo, j.afterCommit = nil, nil
}
