// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a row of the users table. The identity service owns these rows;
// queries here only join against them, so User mirrors the schema and backs
// the in-memory store in servicetest.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          *string    `json:"email,omitempty"`
	HashedPassword *string    `json:"-"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Identity is the verified caller returned by the identity service.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email *string   `json:"email,omitempty"`
}
