package identity

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for token verification.
var (
	ErrMissingToken        = errors.New("authorization header missing")
	ErrMalformedToken      = errors.New("authorization header is not a valid token string")
	ErrUpstreamUnavailable = errors.New("identity service unavailable")
)

// RejectedError is returned when the identity service answers with a 4xx.
// Detail carries the service's human-readable reason.
type RejectedError struct {
	Status int
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("identity service rejected token (status %d): %s", e.Status, e.Detail)
}

// HTTPStatus is the status this service answers with for the rejection.
// Upstream 403 stays 403; every other rejection becomes 401.
func (e *RejectedError) HTTPStatus() int {
	if e.Status == http.StatusForbidden {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}
