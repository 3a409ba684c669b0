// Package repository provides database access layer.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool defaults. MaxConns bounds concurrent database work across all requests.
const (
	DefaultMaxConns       = 15
	DefaultAcquireTimeout = 5 * time.Second
)

// Options tunes the connection pool.
type Options struct {
	MaxConns       int32
	MinConns       int32
	AcquireTimeout time.Duration
}

// Repository owns the PostgreSQL connection pool.
type Repository struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// New creates a new Repository with a connection pool.
func New(ctx context.Context, databaseURL string, opts Options) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if opts.MaxConns <= 0 {
		opts.MaxConns = DefaultMaxConns
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = DefaultAcquireTimeout
	}
	config.MaxConns = opts.MaxConns
	if opts.MinConns > 0 && opts.MinConns <= opts.MaxConns {
		config.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connectivity before accepting traffic
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool, acquireTimeout: opts.AcquireTimeout}, nil
}

// Acquire checks a connection out of the pool. The caller must Release the
// returned session. A full pool that does not free a connection within the
// acquire timeout yields ErrPoolExhausted.
func (r *Repository) Acquire(ctx context.Context) (*Session, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(acquireCtx)
	if err != nil {
		// The caller gave up first; report that rather than blaming the pool.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrPoolExhausted
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return &Session{db: conn, release: conn.Release}, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Session.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// Stats reports pool occupancy for readiness output.
func (r *Repository) Stats() (acquired, max int32) {
	s := r.pool.Stat()
	return s.AcquiredConns(), s.MaxConns()
}
