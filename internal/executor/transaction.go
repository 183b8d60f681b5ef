package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
)

// TxBeginner starts transactions. *pgx.Conn satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// inTx runs fn inside a transaction. The transaction commits when fn succeeds,
// unless the executor is in dry-run mode, and is rolled back otherwise. A
// failed rollback is reported together with the error that caused it.
func (e *Executor) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if rbErr == nil || errors.Is(rbErr, pgx.ErrTxClosed) {
			return
		}

		rbErr = fmt.Errorf("rolling back transaction: %w", rbErr)
		if err == nil {
			err = rbErr
			return
		}

		err = multierror.Append(err, rbErr)
	}()

	if err := e.applyTimeouts(ctx, tx); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}

	if e.dryRun {
		return nil
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
