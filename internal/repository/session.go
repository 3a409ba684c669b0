package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx shared by pooled connections, the pool itself
// and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Session runs queries on one checked-out connection.
type Session struct {
	db      Querier
	release func()
}

// NewSession wraps an arbitrary Querier, e.g. a pgx.Tx in tests.
func NewSession(db Querier) *Session {
	return &Session{db: db}
}

// Release returns the connection to the pool. Safe to call more than once.
func (s *Session) Release() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}
