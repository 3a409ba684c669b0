package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSubscriptionNameLength matches the varchar limit enforced at the API edge.
const MaxSubscriptionNameLength = 255

// Subscription is a row of the subscriptions table.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether the subscription belongs to the given user.
func (s *Subscription) OwnedBy(userID uuid.UUID) bool {
	return s.UserID == userID
}

// SubscriptionJoinedUser is a subscription joined with its owner's email.
type SubscriptionJoinedUser struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     *string   `json:"email"`
}

// SubscriptionPatch is a partial update. Nil fields are left untouched.
type SubscriptionPatch struct {
	Name *string
}

// IsEmpty returns true if the patch would not change any column.
func (p SubscriptionPatch) IsEmpty() bool {
	return p.Name == nil
}

// Normalize trims whitespace from every set field.
func (p SubscriptionPatch) Normalize() SubscriptionPatch {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	return p
}
