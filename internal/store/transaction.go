package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
)

// TxFn runs inside a transaction. A nil return commits.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn in a read-write transaction on db. The
// transaction is rolled back when fn returns an error or panics, and a
// panic is re-raised once the rollback is done.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback()
		if p := recover(); p != nil {
			log.Error("transaction rolled back after panic", slog.Any("panic", p))
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("transaction rollback failed",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("error", err.Error()))
			err = fmt.Errorf("rollback failed: %v: %w", rbErr, err)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
