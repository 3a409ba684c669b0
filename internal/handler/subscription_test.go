package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/subkeeper/subkeeper/internal/auth"
	"github.com/subkeeper/subkeeper/internal/handler/dto"
	"github.com/subkeeper/subkeeper/internal/model"
	"github.com/subkeeper/subkeeper/internal/service"
	"github.com/subkeeper/subkeeper/internal/service/servicetest"
	"github.com/subkeeper/subkeeper/internal/worker"
)

func newTestHandler(t *testing.T) (*SubscriptionHandler, *servicetest.MemorySource) {
	t.Helper()
	src := servicetest.NewMemorySource()
	svc := service.NewSubscriptionService(src, worker.NewPool(2, time.Second, nil), nil, nil)
	return NewSubscriptionHandler(svc, nil), src
}

func asUser(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(auth.ContextWithIdentity(r.Context(), &model.Identity{ID: id}))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestSubscriptionHandler_Create(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/subscription/create", strings.NewReader(`{"name":"Newsletter"}`)), owner)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.SubscriptionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "Newsletter" || resp.UserID != owner || resp.ID == uuid.Nil {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSubscriptionHandler_CreateBadInput(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"name":`, dto.CodeInvalidJSON},
		{"missing name", `{}`, dto.CodeValidationFailed},
		{"blank name", `{"name":"   "}`, dto.CodeValidationFailed},
		{"too long", `{"name":"` + strings.Repeat("n", 256) + `"}`, dto.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asUser(httptest.NewRequest(http.MethodPost, "/api/subscription/create", strings.NewReader(tt.body)), owner)
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if body := decodeError(t, rec); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestSubscriptionHandler_CreatePayloadTooLarge(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")

	rec := httptest.NewRecorder()
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/subscription/create", strings.NewReader(`{"name":"`+strings.Repeat("x", 64)+`"}`)), owner)
	req.Body = http.MaxBytesReader(rec, req.Body, 16)
	h.Create(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
}

func TestSubscriptionHandler_ListEmpty(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/subscription/", nil), owner))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("expected empty JSON array, got %s", got)
	}
}

func TestSubscriptionHandler_Update(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")
	sub := createVia(t, h, owner, "Before")

	req := httptest.NewRequest(http.MethodPatch, "/api/subscription/update/"+sub.ID.String()+"?name=After", nil)
	req = withURLParam(asUser(req, owner), "subscription_id", sub.ID.String())
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.SubscriptionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "After" {
		t.Errorf("expected name After, got %q", resp.Name)
	}
}

func TestSubscriptionHandler_UpdateBadInput(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")
	sub := createVia(t, h, owner, "Before")

	tests := []struct {
		name     string
		id       string
		query    string
		wantCode string
	}{
		{"invalid id", "not-a-uuid", "?name=x", dto.CodeInvalidID},
		{"no name", sub.ID.String(), "", dto.CodeValidationFailed},
		{"empty name", sub.ID.String(), "?name=", dto.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/subscription/update/"+tt.id+tt.query, nil)
			req = withURLParam(asUser(req, owner), "subscription_id", tt.id)
			rec := httptest.NewRecorder()
			h.Update(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if body := decodeError(t, rec); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestSubscriptionHandler_DeleteNotOwned(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")
	stranger := src.AddUser("u2@example.test")
	sub := createVia(t, h, owner, "Mine")

	req := httptest.NewRequest(http.MethodDelete, "/api/subscription/delete/"+sub.ID.String(), nil)
	req = withURLParam(asUser(req, stranger), "subscription_id", sub.ID.String())
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != dto.CodeInternalError {
		t.Errorf("code = %q, want %q", body.Code, dto.CodeInternalError)
	}
	if _, err := ulid.Parse(body.IncidentID); err != nil {
		t.Errorf("expected ULID incident id, got %q", body.IncidentID)
	}
	if strings.Contains(rec.Body.String(), "not found") {
		t.Error("storage error details must not be exposed")
	}
}

func TestSubscriptionHandler_Delete(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")
	sub := createVia(t, h, owner, "Doomed")

	req := httptest.NewRequest(http.MethodDelete, "/api/subscription/delete/"+sub.ID.String(), nil)
	req = withURLParam(asUser(req, owner), "subscription_id", sub.ID.String())
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp dto.SubscriptionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != sub.ID {
		t.Errorf("expected deleted id %s, got %s", sub.ID, resp.ID)
	}
}

func TestSubscriptionHandler_Unavailable(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")
	src.AcquireErr = service.ErrPoolExhausted

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/subscription/", nil), owner))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != dto.CodeUnavailable {
		t.Errorf("code = %q, want %q", body.Code, dto.CodeUnavailable)
	}
}

func TestSubscriptionHandler_StorageFailure(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")
	src.AcquireErr = errors.New("connection reset by peer")

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/subscription/", nil), owner))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("driver errors must not be exposed")
	}
}

func TestSubscriptionHandler_ListByUser(t *testing.T) {
	h, src := newTestHandler(t)
	owner := src.AddUser("u1@example.test")
	createVia(t, h, owner, "One")

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/subscription/subs_user/"+owner.String(), nil), "user_id", owner.String())
	rec := httptest.NewRecorder()
	h.ListByUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var rows []dto.SubscriptionWithEmailResponse
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Email == nil || *rows[0].Email != "u1@example.test" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestSubscriptionHandler_MissingIdentity(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/subscription/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func createVia(t *testing.T, h *SubscriptionHandler, owner uuid.UUID, name string) dto.SubscriptionResponse {
	t.Helper()

	body, _ := json.Marshal(dto.CreateSubscriptionRequest{Name: name})
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/subscription/create", bytes.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %q: status %d: %s", name, rec.Code, rec.Body.String())
	}

	var resp dto.SubscriptionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	return resp
}
