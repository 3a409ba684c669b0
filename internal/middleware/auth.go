package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/subkeeper/subkeeper/internal/auth"
	"github.com/subkeeper/subkeeper/internal/handler/dto"
	"github.com/subkeeper/subkeeper/internal/identity"
	"github.com/subkeeper/subkeeper/internal/metrics"
	"github.com/subkeeper/subkeeper/internal/model"
)

// Verifier resolves request credentials to a caller identity.
// *identity.Client implements it.
type Verifier interface {
	Verify(ctx context.Context, header http.Header) (*model.Identity, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier Verifier
	Metrics  metrics.Recorder
}

// Authenticate verifies the caller with the identity service and injects
// the resulting identity into the request context. Requests that fail
// verification never reach next.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id, err := cfg.Verifier.Verify(r.Context(), r.Header)
			recorder.ObserveAuthDuration(time.Since(start))

			if err != nil {
				status, code, message, result := classifyAuthError(err)
				recorder.IncAuthResult(result)

				attrs := []any{
					slog.String("reason", result),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				}
				if token, tokErr := identity.ExtractToken(r.Header); tokErr == nil {
					attrs = append(attrs, slog.String("token_fp", identity.Fingerprint(token)))
				}
				if status >= http.StatusInternalServerError {
					logger.Error("identity service unavailable", append(attrs, slog.String("error", err.Error()))...)
				} else {
					logger.Warn("authentication failed", attrs...)
				}

				writeError(w, status, code, message)
				return
			}

			recorder.IncAuthResult(metrics.AuthSuccess)
			setLogUserID(r.Context(), id.ID.String())
			logger.Debug("authentication successful",
				slog.String("user_id", id.ID.String()),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func classifyAuthError(err error) (status int, code, message, result string) {
	if rejected, ok := identity.IsRejected(err); ok {
		return rejected.HTTPStatus(), dto.CodeAuthRejected, rejected.Detail, metrics.AuthRejected
	}

	switch {
	case errors.Is(err, identity.ErrMissingToken):
		return http.StatusBadRequest, dto.CodeMissingToken, "Authorization header is required", metrics.AuthMissingToken
	case errors.Is(err, identity.ErrMalformedToken):
		return http.StatusBadRequest, dto.CodeMalformedToken, "Authorization header is malformed", metrics.AuthMissingToken
	default:
		return http.StatusBadGateway, dto.CodeAuthUnavailable, "Identity service unavailable", metrics.AuthUnavailable
	}
}
