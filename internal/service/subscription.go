// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/subkeeper/subkeeper/internal/metrics"
	"github.com/subkeeper/subkeeper/internal/model"
	"github.com/subkeeper/subkeeper/internal/repository"
	"github.com/subkeeper/subkeeper/internal/worker"
)

// Service errors. Data-access sentinels are re-exported so handlers only
// depend on this package.
var (
	ErrSubscriptionNotFound = repository.ErrSubscriptionNotFound
	ErrOwnerNotFound        = repository.ErrOwnerNotFound
	ErrEmptyPatch           = repository.ErrEmptyPatch
	ErrPoolExhausted        = repository.ErrPoolExhausted
	ErrStorageUnavailable   = repository.ErrStorageUnavailable
	ErrSaturated            = worker.ErrSaturated
	ErrInvalidName          = errors.New("subscription name must be 1-255 characters")
)

// Session is one checked-out database connection.
// *repository.Session implements it.
type Session interface {
	CreateSubscription(ctx context.Context, ownerID uuid.UUID, name string) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]*model.Subscription, error)
	ListSubscriptionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Subscription, error)
	ListSubscriptionsJoinedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.SubscriptionJoinedUser, error)
	UpdateSubscription(ctx context.Context, ownerID, id uuid.UUID, patch model.SubscriptionPatch) (*model.Subscription, error)
	DeleteSubscription(ctx context.Context, ownerID, id uuid.UUID) (*model.Subscription, error)
	Release()
}

// SessionSource hands out sessions; acquisition may fail.
type SessionSource interface {
	Acquire(ctx context.Context) (Session, error)
}

// repositorySource adapts *repository.Repository to SessionSource.
type repositorySource struct {
	repo *repository.Repository
}

// NewRepositorySource exposes repo as a SessionSource.
func NewRepositorySource(repo *repository.Repository) SessionSource {
	return repositorySource{repo: repo}
}

func (s repositorySource) Acquire(ctx context.Context) (Session, error) {
	sess, err := s.repo.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SubscriptionService runs owner-scoped data access on the worker pool.
type SubscriptionService struct {
	source  SessionSource
	pool    *worker.Pool
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(source SessionSource, pool *worker.Pool, recorder metrics.Recorder, logger *slog.Logger) *SubscriptionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionService{
		source:  source,
		pool:    pool,
		metrics: recorder,
		logger:  logger.With("component", "subscription.service"),
	}
}

// Create stores a new subscription owned by ownerID.
func (s *SubscriptionService) Create(ctx context.Context, ownerID uuid.UUID, name string) (*model.Subscription, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	sub, err := withSession(ctx, s, "create", func(ctx context.Context, sess Session) (*model.Subscription, error) {
		return sess.CreateSubscription(ctx, ownerID, name)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubscriptionCreated()
	return sub, nil
}

// ListByOwner returns the subscriptions owned by ownerID.
func (s *SubscriptionService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Subscription, error) {
	return withSession(ctx, s, "list_by_owner", func(ctx context.Context, sess Session) ([]*model.Subscription, error) {
		return sess.ListSubscriptionsByOwner(ctx, ownerID)
	})
}

// ListJoinedByOwner returns subscriptions of any user together with the
// user's email. Not scoped to the caller; route it behind an admin check.
func (s *SubscriptionService) ListJoinedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.SubscriptionJoinedUser, error) {
	return withSession(ctx, s, "list_joined_by_owner", func(ctx context.Context, sess Session) ([]*model.SubscriptionJoinedUser, error) {
		return sess.ListSubscriptionsJoinedByOwner(ctx, ownerID)
	})
}

// ListAll returns every subscription. Diagnostic only.
func (s *SubscriptionService) ListAll(ctx context.Context) ([]*model.Subscription, error) {
	return withSession(ctx, s, "list_all", func(ctx context.Context, sess Session) ([]*model.Subscription, error) {
		return sess.ListSubscriptions(ctx)
	})
}

// Update applies patch to subscription id if ownerID owns it.
func (s *SubscriptionService) Update(ctx context.Context, ownerID, id uuid.UUID, patch model.SubscriptionPatch) (*model.Subscription, error) {
	patch = patch.Normalize()
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	if patch.Name != nil {
		if _, err := normalizeName(*patch.Name); err != nil {
			return nil, err
		}
	}

	sub, err := withSession(ctx, s, "update", func(ctx context.Context, sess Session) (*model.Subscription, error) {
		return sess.UpdateSubscription(ctx, ownerID, id, patch)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubscriptionUpdated()
	return sub, nil
}

// Delete removes subscription id if ownerID owns it and returns its last state.
func (s *SubscriptionService) Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Subscription, error) {
	sub, err := withSession(ctx, s, "delete", func(ctx context.Context, sess Session) (*model.Subscription, error) {
		return sess.DeleteSubscription(ctx, ownerID, id)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubscriptionDeleted()
	return sub, nil
}

// withSession runs fn on the worker pool against a freshly acquired session.
func withSession[T any](ctx context.Context, s *SubscriptionService, op string, fn func(ctx context.Context, sess Session) (T, error)) (T, error) {
	result, err := worker.Do(ctx, s.pool, func(ctx context.Context) (T, error) {
		sess, err := s.source.Acquire(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		defer sess.Release()

		return fn(ctx, sess)
	})
	if err != nil {
		s.metrics.IncStorageError()
		s.logger.Debug("data access failed", "op", op, "error", err)
	}
	return result, err
}

func normalizeName(name string) (string, error) {
	patch := model.SubscriptionPatch{Name: &name}.Normalize()
	n := len([]rune(*patch.Name))
	if n == 0 || n > model.MaxSubscriptionNameLength {
		return "", ErrInvalidName
	}
	return *patch.Name, nil
}
