package postgres

import (
	"context"
	"database/sql"
	"time"

	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// TxRunner runs a unit of work inside one database transaction.
// Stores join it through tx.ExecerFor.
type TxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db, timeout: defaultTxTimeout}
}

// RunInTx commits when fn returns nil and rolls back otherwise. Callbacks
// registered with tx.AfterCommit run only after a successful commit.
// A context that already carries a transaction is reused as is.
func (t *TxRunner) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	txCtx, journal := tx.Open(tx.WithTx(ctx, sqlTx))
	if err := fn(txCtx); err != nil {
		journal.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		journal.Rollback()
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	journal.Commit()
	return nil
}
