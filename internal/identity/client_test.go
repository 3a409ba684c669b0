package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
)

// fakeIdentityService records the last request and answers with a canned response.
type fakeIdentityService struct {
	status int
	body   string

	calls       atomic.Int32
	lastPath    string
	lastMethod  string
	lastToken   string
	lastReqID   string
	contentType string
}

func (f *fakeIdentityService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.lastPath = r.URL.Path
	f.lastMethod = r.Method
	f.lastReqID = r.Header.Get("X-Request-ID")
	f.contentType = r.Header.Get("Content-Type")

	var req struct {
		Token string `json:"token"`
	}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &req)
	f.lastToken = req.Token

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))
}

func newTestClient(t *testing.T, fake *fakeIdentityService) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", Options{
		RequestID: func(ctx context.Context) string { return "req-123" },
	})
}

func authHeader(value string) http.Header {
	h := http.Header{}
	h.Set("Authorization", value)
	return h
}

func TestClient_Verify_Success(t *testing.T) {
	userID := uuid.New()
	fake := &fakeIdentityService{
		status: http.StatusOK,
		body:   `{"id":"` + userID.String() + `","email":"u1@example.test","is_active":true}`,
	}
	client := newTestClient(t, fake)

	id, err := client.Verify(context.Background(), authHeader("Bearer tok-abc"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if id.ID != userID {
		t.Errorf("expected id %s, got %s", userID, id.ID)
	}
	if id.Email == nil || *id.Email != "u1@example.test" {
		t.Errorf("unexpected email %v", id.Email)
	}

	if fake.lastMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", fake.lastMethod)
	}
	if fake.lastPath != "/users/user" {
		t.Errorf("expected path /users/user, got %s", fake.lastPath)
	}
	if fake.lastToken != "Bearer tok-abc" {
		t.Errorf("token must be forwarded verbatim, got %q", fake.lastToken)
	}
	if fake.contentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", fake.contentType)
	}
	if fake.lastReqID != "req-123" {
		t.Errorf("expected request id to be forwarded, got %q", fake.lastReqID)
	}
}

func TestClient_Verify_TokenErrors(t *testing.T) {
	fake := &fakeIdentityService{status: http.StatusOK, body: `{}`}
	client := newTestClient(t, fake)

	tests := []struct {
		name    string
		header  http.Header
		wantErr error
	}{
		{"missing", http.Header{}, ErrMissingToken},
		{"blank", authHeader("   "), ErrMissingToken},
		{"control character", authHeader("tok\x01en"), ErrMalformedToken},
		{"non ascii", authHeader("tøken"), ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Verify(context.Background(), tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if fake.calls.Load() != 0 {
		t.Errorf("identity service must not be called for bad headers, got %d calls", fake.calls.Load())
	}
}

func TestClient_Verify_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantHTTP   int
	}{
		{"unauthorized with detail", http.StatusUnauthorized, `{"detail":"Token expired"}`, "Token expired", http.StatusUnauthorized},
		{"bad request", http.StatusBadRequest, `{"detail":"Could not validate credentials"}`, "Could not validate credentials", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden, `{"detail":"User disabled"}`, "User disabled", http.StatusForbidden},
		{"empty detail", http.StatusNotFound, `{"detail":""}`, "Not Found", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeIdentityService{status: tt.status, body: tt.body})

			_, err := client.Verify(context.Background(), authHeader("tok"))
			rejected, ok := IsRejected(err)
			if !ok {
				t.Fatalf("expected RejectedError, got %v", err)
			}
			if rejected.Status != tt.status {
				t.Errorf("expected upstream status %d, got %d", tt.status, rejected.Status)
			}
			if rejected.Detail != tt.wantDetail {
				t.Errorf("expected detail %q, got %q", tt.wantDetail, rejected.Detail)
			}
			if rejected.HTTPStatus() != tt.wantHTTP {
				t.Errorf("expected HTTP status %d, got %d", tt.wantHTTP, rejected.HTTPStatus())
			}
		})
	}
}

func TestClient_Verify_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`},
		{"bad gateway", http.StatusBadGateway, `upstream down`},
		{"malformed success body", http.StatusOK, `{"id":`},
		{"success without id", http.StatusOK, `{"email":"x@example.test"}`},
		{"invalid uuid", http.StatusOK, `{"id":"not-a-uuid"}`},
		{"malformed rejection body", http.StatusUnauthorized, `<html>nope</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeIdentityService{status: tt.status, body: tt.body})

			_, err := client.Verify(context.Background(), authHeader("tok"))
			if !errors.Is(err, ErrUpstreamUnavailable) {
				t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
			}
			if _, ok := IsRejected(err); ok {
				t.Error("unavailability must not be reported as a rejection")
			}
		})
	}
}

func TestClient_Verify_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, Options{})

	_, err := client.Verify(context.Background(), authHeader("tok"))
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestClient_Verify_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	client := NewClient(srv.URL, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Verify(ctx, authHeader("tok"))
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected the cause to be kept, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("token-a")
	b := Fingerprint("token-b")

	if a != Fingerprint("token-a") {
		t.Error("fingerprint should be deterministic")
	}
	if a == b {
		t.Error("different tokens should have different fingerprints")
	}
	if len(a) != 12 {
		t.Errorf("expected 12 hex chars, got %d", len(a))
	}
	if strings.Contains(a, "token") {
		t.Error("fingerprint must not contain the token")
	}
}
