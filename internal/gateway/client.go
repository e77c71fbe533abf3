// Package gateway is the single dispatch point for backend calls. It
// attaches the bearer credential to outgoing requests and reports 401s on
// credentialed requests to the registered expiry callback.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"mace/internal/logger"
)

const defaultUserAgent = "mace-console"

// CredentialSource supplies the bearer token and the generation it belongs to.
type CredentialSource interface {
	Credentials() (token string, generation uint64, ok bool)
}

// ExpiryFunc is invoked synchronously when a credentialed request gets a 401.
type ExpiryFunc func(generation uint64)

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	log       *slog.Logger
	userAgent string

	mu        sync.RWMutex
	creds     CredentialSource
	onExpired ExpiryFunc
}

type Option func(*Client)

// WithHTTPClient replaces the transport. The default client sets no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{},
		log:       logger.Discard(),
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL.String() }

// Bind registers the credential source and the session-invalidation
// callback. It is called once at start-up, after the session provider exists.
func (c *Client) Bind(src CredentialSource, onExpired ExpiryFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = src
	c.onExpired = onExpired
}

func (c *Client) bound() (CredentialSource, ExpiryFunc) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds, c.onExpired
}

// Request describes one backend call. Anonymous requests never carry the
// bearer credential and never trigger expiry.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Anonymous bool
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends r and decodes a successful JSON response into out, when non-nil.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}
	requestID := req.Header.Get("X-Request-ID")

	src, onExpired := c.bound()
	var (
		generation uint64
		attached   bool
	)
	if !r.Anonymous && src != nil {
		if token, gen, ok := src.Credentials(); ok {
			(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
			generation, attached = gen, true
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.DebugContext(ctx, "backend request failed",
			"method", r.Method, "path", r.Path, "request_id", requestID, "error", err)
		return &NetworkError{Method: r.Method, Path: r.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: r.Method, Path: r.Path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.DebugContext(ctx, "backend request",
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(r, resp.StatusCode, data, requestID)
		if resp.StatusCode == http.StatusUnauthorized && attached && onExpired != nil {
			onExpired(generation)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.Method, r.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	u := c.baseURL.JoinPath(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", r.Method, r.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", r.Method, r.Path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newAPIError(r Request, status int, data []byte, requestID string) *APIError {
	apiErr := &APIError{Method: r.Method, Path: r.Path, StatusCode: status, RequestID: requestID}
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = strings.TrimSpace(body.Message)
		apiErr.Reason = strings.TrimSpace(body.Error)
	}
	return apiErr
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
