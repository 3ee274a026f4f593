package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

// sqlstateErrors maps SQLSTATE codes to the store sentinel they signal.
var sqlstateErrors = map[string]error{
	"23505": store.ErrDuplicate,       // unique_violation
	"23503": store.ErrInvalidEntity,   // foreign_key_violation
	"23514": store.ErrInvalidEntity,   // check_violation
	"23502": store.ErrInvalidEntity,   // not_null_violation
	"40001": store.ErrVersionConflict, // serialization_failure
}

// MapError wraps err with the store sentinel matching its SQLSTATE. Errors
// with no mapping are returned untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	sentinel, ok := sqlstateErrors[pgErr.Code]
	if !ok {
		return err
	}

	switch {
	case pgErr.ConstraintName != "" && sentinel == store.ErrInvalidEntity:
		return fmt.Errorf("%w (%s): %v", sentinel, pgErr.ConstraintName, err)
	case pgErr.ColumnName != "" && sentinel == store.ErrInvalidEntity:
		return fmt.Errorf("%w (column %s): %v", sentinel, pgErr.ColumnName, err)
	default:
		return fmt.Errorf("%w: %v", sentinel, err)
	}
}
