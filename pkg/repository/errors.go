package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// ErrRetryable marks a transaction that lost a serialization race and may
// be run again unchanged.
var ErrRetryable = errors.New("transaction conflict, retry")

// Errors holds a domain's sentinel errors for MapError.
type Errors struct {
	NotFound error
	Conflict error
}

// Map translates err into the domain's sentinels: no rows becomes NotFound,
// a unique violation becomes Conflict, and serialization failures wrap
// ErrRetryable. Anything else is returned unchanged.
func (e Errors) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && e.NotFound != nil {
		return e.NotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			if e.Conflict != nil {
				return fmt.Errorf("%w: %s", e.Conflict, pgErr.ConstraintName)
			}
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrRetryable, pgErr.Message)
		}
	}

	return err
}
