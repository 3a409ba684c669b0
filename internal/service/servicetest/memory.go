// Package servicetest provides an in-memory SessionSource for tests that do
// not need Postgres.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/subkeeper/subkeeper/internal/model"
	"github.com/subkeeper/subkeeper/internal/repository"
	"github.com/subkeeper/subkeeper/internal/service"
)

// MemorySource keeps users and subscriptions in maps and applies the same
// owner scoping as the SQL session.
type MemorySource struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
	subs  map[uuid.UUID]*model.Subscription
	now   func() time.Time

	acquires atomic.Int32
	released atomic.Int32

	// AcquireErr, when set, is returned by every Acquire call.
	AcquireErr error
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		users: make(map[uuid.UUID]*model.User),
		subs:  make(map[uuid.UUID]*model.Subscription),
		now:   time.Now,
	}
}

// AddUser registers a user and returns its id.
func (m *MemorySource) AddUser(email string) uuid.UUID {
	id := uuid.New()
	m.AddUserID(id, email)
	return id
}

// AddUserID registers a user under a known id.
func (m *MemorySource) AddUserID(id uuid.UUID, email string) {
	now := m.now()
	m.mu.Lock()
	m.users[id] = &model.User{ID: id, Email: &email, CreatedAt: &now, UpdatedAt: &now}
	m.mu.Unlock()
}

// Acquires reports how many sessions were requested.
func (m *MemorySource) Acquires() int {
	return int(m.acquires.Load())
}

// Released reports how many sessions were given back.
func (m *MemorySource) Released() int {
	return int(m.released.Load())
}

// Acquire implements service.SessionSource.
func (m *MemorySource) Acquire(ctx context.Context) (service.Session, error) {
	m.acquires.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.AcquireErr != nil {
		return nil, m.AcquireErr
	}
	return &memorySession{src: m}, nil
}

type memorySession struct {
	src      *MemorySource
	released bool
}

func (s *memorySession) Release() {
	if s.released {
		return
	}
	s.released = true
	s.src.released.Add(1)
}

func (s *memorySession) CreateSubscription(ctx context.Context, ownerID uuid.UUID, name string) (*model.Subscription, error) {
	m := s.src
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[ownerID]; !ok {
		return nil, repository.ErrOwnerNotFound
	}

	now := m.now().UTC()
	sub := &model.Subscription{
		ID:        uuid.New(),
		UserID:    ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.subs[sub.ID] = sub
	return copySub(sub), nil
}

func (s *memorySession) ListSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	return s.src.filter(func(*model.Subscription) bool { return true }), nil
}

func (s *memorySession) ListSubscriptionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Subscription, error) {
	return s.src.filter(func(sub *model.Subscription) bool { return sub.OwnedBy(ownerID) }), nil
}

func (s *memorySession) ListSubscriptionsJoinedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.SubscriptionJoinedUser, error) {
	subs := s.src.filter(func(sub *model.Subscription) bool { return sub.OwnedBy(ownerID) })

	s.src.mu.Lock()
	owner, ok := s.src.users[ownerID]
	s.src.mu.Unlock()

	out := make([]*model.SubscriptionJoinedUser, 0, len(subs))
	if !ok {
		return out, nil
	}
	for _, sub := range subs {
		out = append(out, &model.SubscriptionJoinedUser{
			ID:        sub.ID,
			UserID:    sub.UserID,
			Name:      sub.Name,
			CreatedAt: sub.CreatedAt,
			UpdatedAt: sub.UpdatedAt,
			Email:     owner.Email,
		})
	}
	return out, nil
}

func (s *memorySession) UpdateSubscription(ctx context.Context, ownerID, id uuid.UUID, patch model.SubscriptionPatch) (*model.Subscription, error) {
	if patch.IsEmpty() {
		return nil, repository.ErrEmptyPatch
	}

	m := s.src
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[id]
	if !ok || !sub.OwnedBy(ownerID) {
		return nil, repository.ErrSubscriptionNotFound
	}
	if patch.Name != nil {
		sub.Name = *patch.Name
	}
	sub.UpdatedAt = m.now().UTC()
	return copySub(sub), nil
}

func (s *memorySession) DeleteSubscription(ctx context.Context, ownerID, id uuid.UUID) (*model.Subscription, error) {
	m := s.src
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[id]
	if !ok || !sub.OwnedBy(ownerID) {
		return nil, repository.ErrSubscriptionNotFound
	}
	delete(m.subs, id)
	return sub, nil
}

func (m *MemorySource) filter(keep func(*model.Subscription) bool) []*model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Subscription, 0)
	for _, sub := range m.subs {
		if keep(sub) {
			out = append(out, copySub(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func copySub(sub *model.Subscription) *model.Subscription {
	c := *sub
	return &c
}
