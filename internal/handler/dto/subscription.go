// Package dto defines the JSON request and response bodies of the API.
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/subkeeper/subkeeper/internal/model"
)

// CreateSubscriptionRequest is the body of POST /create.
type CreateSubscriptionRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// UpdateSubscriptionQuery holds the query parameters of PATCH /update/{id}.
type UpdateSubscriptionQuery struct {
	Name *string `validate:"omitempty,min=1,max=255"`
}

// SubscriptionResponse is a subscription as returned to clients.
type SubscriptionResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubscriptionWithEmailResponse adds the owner's email.
type SubscriptionWithEmailResponse struct {
	SubscriptionResponse
	Email *string `json:"email"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	IncidentID string `json:"incident_id,omitempty"`
}

// Error codes.
const (
	CodeMissingToken     = "MISSING_TOKEN"
	CodeMalformedToken   = "MALFORMED_TOKEN"
	CodeAuthRejected     = "AUTH_REJECTED"
	CodeAuthUnavailable  = "AUTH_UNAVAILABLE"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeInvalidID        = "INVALID_ID"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeForbidden        = "FORBIDDEN"
	CodeRateLimited      = "RATE_LIMITED"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// ToSubscriptionResponse converts a Subscription model to its DTO.
func ToSubscriptionResponse(sub *model.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:        sub.ID,
		UserID:    sub.UserID,
		Name:      sub.Name,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
	}
}

// ToSubscriptionResponses converts a slice; the result is never nil.
func ToSubscriptionResponses(subs []*model.Subscription) []*SubscriptionResponse {
	out := make([]*SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, ToSubscriptionResponse(sub))
	}
	return out
}

// ToSubscriptionWithEmailResponses converts joined rows; the result is never nil.
func ToSubscriptionWithEmailResponses(rows []*model.SubscriptionJoinedUser) []*SubscriptionWithEmailResponse {
	out := make([]*SubscriptionWithEmailResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, &SubscriptionWithEmailResponse{
			SubscriptionResponse: SubscriptionResponse{
				ID:        row.ID,
				UserID:    row.UserID,
				Name:      row.Name,
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
			},
			Email: row.Email,
		})
	}
	return out
}
