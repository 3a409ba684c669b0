package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	// ErrSubscriptionNotFound covers both a missing row and a row owned by
	// someone else; callers cannot tell the two apart.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrOwnerNotFound        = errors.New("subscription owner not found")
	ErrEmptyPatch           = errors.New("no fields to update")
	ErrPoolExhausted        = errors.New("database connection pool exhausted")
	ErrStorageUnavailable   = errors.New("database unavailable")
)

// PostgreSQL SQLSTATE codes.
const (
	codeForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == codeForeignKeyViolation
}
