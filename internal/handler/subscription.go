package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/subkeeper/subkeeper/internal/auth"
	"github.com/subkeeper/subkeeper/internal/handler/dto"
	"github.com/subkeeper/subkeeper/internal/model"
	"github.com/subkeeper/subkeeper/internal/service"
)

// Subscriptions is the service surface the handler needs.
// *service.SubscriptionService implements it.
type Subscriptions interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string) (*model.Subscription, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Subscription, error)
	ListJoinedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.SubscriptionJoinedUser, error)
	ListAll(ctx context.Context) ([]*model.Subscription, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch model.SubscriptionPatch) (*model.Subscription, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Subscription, error)
}

// SubscriptionHandler handles subscription endpoints.
type SubscriptionHandler struct {
	svc      Subscriptions
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(svc Subscriptions, logger *slog.Logger) *SubscriptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionHandler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "subscription.handler"),
	}
}

// Create handles POST /create.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req dto.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, dto.CodePayloadTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, dto.CodeInvalidJSON, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, dto.CodeValidationFailed, validationMessage(err))
		return
	}

	sub, err := h.svc.Create(r.Context(), ownerID, req.Name)
	if err != nil {
		h.writeServiceError(w, r, "create", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToSubscriptionResponse(sub))
}

// List handles GET /.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	subs, err := h.svc.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, r, "list", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSubscriptionResponses(subs))
}

// Update handles PATCH /update/{subscription_id}?name=.
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "subscription_id")
	if !ok {
		return
	}

	var query dto.UpdateSubscriptionQuery
	if values := r.URL.Query(); values.Has("name") {
		name := values.Get("name")
		query.Name = &name
	}
	if err := h.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, dto.CodeValidationFailed, validationMessage(err))
		return
	}

	sub, err := h.svc.Update(r.Context(), ownerID, id, model.SubscriptionPatch{Name: query.Name})
	if err != nil {
		h.writeServiceError(w, r, "update", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSubscriptionResponse(sub))
}

// Delete handles DELETE /delete/{subscription_id}.
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "subscription_id")
	if !ok {
		return
	}

	sub, err := h.svc.Delete(r.Context(), ownerID, id)
	if err != nil {
		h.writeServiceError(w, r, "delete", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSubscriptionResponse(sub))
}

// ListByUser handles GET /subs_user/{user_id}. The lookup is not scoped to
// the caller, so the route must sit behind RequireAdminToken.
func (h *SubscriptionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "user_id")
	if !ok {
		return
	}

	rows, err := h.svc.ListJoinedByOwner(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, "list_by_user", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSubscriptionWithEmailResponses(rows))
}

// ListAll handles GET /subs. Diagnostic only.
func (h *SubscriptionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list_all", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSubscriptionResponses(subs))
}

func (h *SubscriptionHandler) owner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Authenticate did not run for this route.
		h.logger.Error("missing identity in request context", slog.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, dto.CodeInternalError, "Internal server error")
		return uuid.Nil, false
	}
	return ownerID, true
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, dto.CodeInvalidID, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors to responses. Storage failures,
// including a row the caller does not own, share one opaque 500 body keyed
// by an incident id that also appears in the log.
func (h *SubscriptionHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidName):
		writeError(w, http.StatusBadRequest, dto.CodeValidationFailed, "name must be 1-255 characters")
		return
	case errors.Is(err, service.ErrEmptyPatch):
		writeError(w, http.StatusBadRequest, dto.CodeValidationFailed, "no fields to update")
		return
	case errors.Is(err, service.ErrPoolExhausted), errors.Is(err, service.ErrSaturated):
		h.logger.Warn("subscription request shed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, dto.CodeUnavailable, "Service temporarily unavailable, retry later")
		return
	}

	incidentID := ulid.Make().String()
	h.logger.Error("subscription request failed",
		slog.String("op", op),
		slog.String("incident_id", incidentID),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
		Error:      "Internal server error",
		Code:       dto.CodeInternalError,
		IncidentID: incidentID,
	})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return "name is required"
		case "min", "max":
			return "name must be 1-255 characters"
		}
		return fe.Field() + " is invalid"
	}
	return "invalid request"
}
