package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/subkeeper/subkeeper/internal/model"
)

const subscriptionColumns = `id, user_id, name, created_at, updated_at`

// CreateSubscription inserts a subscription for ownerID and returns the stored row.
// id and both timestamps come from column defaults, so created_at equals updated_at.
func (s *Session) CreateSubscription(ctx context.Context, ownerID uuid.UUID, name string) (*model.Subscription, error) {
	query := `
		INSERT INTO subscriptions (user_id, name)
		VALUES ($1, $2)
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(s.db.QueryRow(ctx, query, ownerID, name))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return sub, nil
}

// ListSubscriptions returns every subscription regardless of owner.
// Diagnostic use only.
func (s *Session) ListSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		ORDER BY created_at, id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return collectSubscriptions(rows)
}

// ListSubscriptionsByOwner returns the subscriptions owned by ownerID.
func (s *Session) ListSubscriptionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at, id
	`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions by owner: %w", err)
	}

	return collectSubscriptions(rows)
}

// ListSubscriptionsJoinedByOwner returns the subscriptions of ownerID together
// with the owner's email. ownerID is whatever the caller asks for; it is not
// tied to an authenticated identity.
func (s *Session) ListSubscriptionsJoinedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.SubscriptionJoinedUser, error) {
	query := `
		SELECT s.id, s.user_id, s.name, s.created_at, s.updated_at, u.email
		FROM users u
		INNER JOIN subscriptions s ON s.user_id = u.id
		WHERE u.id = $1
		ORDER BY s.created_at, s.id
	`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined subscriptions: %w", err)
	}

	joined, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[model.SubscriptionJoinedUser])
	if err != nil {
		return nil, fmt.Errorf("failed to collect joined subscriptions: %w", err)
	}

	return joined, nil
}

// UpdateSubscription applies patch to the row matching both ownerID and id.
func (s *Session) UpdateSubscription(ctx context.Context, ownerID, id uuid.UUID, patch model.SubscriptionPatch) (*model.Subscription, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	sets := []string{"updated_at = now()"}
	args := []any{ownerID, id}

	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}

	query := `
		UPDATE subscriptions
		SET ` + strings.Join(sets, ", ") + `
		WHERE user_id = $1 AND id = $2
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	return sub, nil
}

// DeleteSubscription removes the row matching both ownerID and id and
// returns its last state.
func (s *Session) DeleteSubscription(ctx context.Context, ownerID, id uuid.UUID) (*model.Subscription, error) {
	query := `
		DELETE FROM subscriptions
		WHERE user_id = $1 AND id = $2
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(s.db.QueryRow(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to delete subscription: %w", err)
	}

	return sub, nil
}

// scanSubscription scans a single RETURNING row into a Subscription model.
func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var sub model.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Name,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// collectSubscriptions maps rows selected with subscriptionColumns. The
// column order matches the field order of model.Subscription.
func collectSubscriptions(rows pgx.Rows) ([]*model.Subscription, error) {
	subs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[model.Subscription])
	if err != nil {
		return nil, fmt.Errorf("failed to collect subscriptions: %w", err)
	}
	return subs, nil
}
