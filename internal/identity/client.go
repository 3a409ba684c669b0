// Package identity verifies bearer tokens against the external identity service.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/subkeeper/subkeeper/internal/model"
)

const (
	// DefaultTimeout is the total request timeout.
	DefaultTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 8 * time.Second

	// verifyPath is appended to the configured base URL.
	verifyPath = "/users/user"
	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 1 << 20

	headerRequestID = "X-Request-ID"
)

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	// RequestID, when set, supplies the inbound request id to forward upstream.
	RequestID func(ctx context.Context) string
	// HTTPClient overrides the default transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the identity service. It is safe for concurrent use.
type Client struct {
	verifyURL  string
	httpClient *http.Client
	requestID  func(ctx context.Context) string
}

// NewClient creates a Client for the identity service at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(opts.Timeout)
	}

	return &Client{
		verifyURL:  strings.TrimRight(baseURL, "/") + verifyPath,
		httpClient: httpClient,
		requestID:  opts.RequestID,
	}
}

// NewHTTPClient creates an HTTP client with bounded timeouts that does not
// follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   DialTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// Verify resolves the caller behind the Authorization header in header.
// Every call goes to the identity service; results are not cached.
func (c *Client) Verify(ctx context.Context, header http.Header) (*model.Identity, error) {
	token, err := ExtractToken(header)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.requestID != nil {
		if id := c.requestID(ctx); id != "" {
			req.Header.Set(headerRequestID, id)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodeIdentity(body)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, decodeRejection(resp.StatusCode, body)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
}

func decodeIdentity(body []byte) (*model.Identity, error) {
	var id model.Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return nil, fmt.Errorf("%w: decode identity: %w", ErrUpstreamUnavailable, err)
	}
	if id.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: identity response has no user id", ErrUpstreamUnavailable)
	}
	return &id, nil
}

func decodeRejection(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fmt.Errorf("%w: decode rejection (status %d): %w", ErrUpstreamUnavailable, status, err)
	}
	detail := strings.TrimSpace(eb.Detail)
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &RejectedError{Status: status, Detail: detail}
}

// IsRejected reports whether err is a RejectedError and returns it.
func IsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}
