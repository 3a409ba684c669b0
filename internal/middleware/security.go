package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/subkeeper/subkeeper/internal/handler/dto"
)

// DefaultHSTSMaxAge is used when SecurityConfig.HSTSMaxAge is zero.
const DefaultHSTSMaxAge = 365 * 24 * time.Hour

// SecurityConfig controls the headers set by Security.
type SecurityConfig struct {
	// IsDevelopment skips Strict-Transport-Security so plain-HTTP local
	// setups keep working.
	IsDevelopment bool
	HSTSMaxAge    time.Duration
}

// apiHeaders is set on every response. The API only returns JSON, so
// nothing may be framed, embedded or cached.
var apiHeaders = []struct{ name, value string }{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Cache-Control", "no-store"},
}

// Security sets the response security headers before calling next.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	hsts := ""
	if !cfg.IsDevelopment {
		maxAge := cfg.HSTSMaxAge
		if maxAge <= 0 {
			maxAge = DefaultHSTSMaxAge
		}
		hsts = "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiHeaders {
				h.Set(kv.name, kv.value)
			}
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize rejects requests that declare a body larger than maxBytes
// and caps the bytes a handler can read from the rest. A handler that
// reads past the cap gets an *http.MaxBytesError.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, dto.CodePayloadTooLarge, "Request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
