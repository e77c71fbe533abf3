// Package oauthcb completes a third-party account connection: it reads the
// provider's redirect parameters, forwards them to the backend token
// exchange, and reports the outcome.
package oauthcb

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"mace/internal/gateway"
	"mace/internal/logger"
	"mace/internal/session"
)

// PathConnect is where the user lands after a successful connection.
const PathConnect = "/connect"

// DefaultRedirectDelay leaves the confirmation visible before moving on.
const DefaultRedirectDelay = 1500 * time.Millisecond

// Exchanger forwards the redirect parameters to the backend.
type Exchanger interface {
	ExchangeTwitter(ctx context.Context, p Params) error
}

type Status int

const (
	StatusProcessing Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusProcessing:
		return "processing"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Result struct {
	Status  Status
	Variant Variant
	Reason  string
}

// Handler is single-shot: Run performs the flow once and later calls
// return the same result.
type Handler struct {
	query    url.Values
	exchange Exchanger
	nav      session.Navigator
	delay    time.Duration
	after    func(time.Duration, func())
	log      *slog.Logger

	once   sync.Once
	mu     sync.Mutex
	result Result
}

type Option func(*Handler)

func WithRedirectDelay(d time.Duration) Option {
	return func(h *Handler) { h.delay = d }
}

// WithAfterFunc replaces the timer used to schedule the redirect.
func WithAfterFunc(after func(time.Duration, func())) Option {
	return func(h *Handler) { h.after = after }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

func NewHandler(query url.Values, exchange Exchanger, nav session.Navigator, opts ...Option) *Handler {
	h := &Handler{
		query:    query,
		exchange: exchange,
		nav:      nav,
		delay:    DefaultRedirectDelay,
		after:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		log:      logger.Discard(),
		result:   Result{Status: StatusProcessing},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) Result() Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func (h *Handler) Run(ctx context.Context) Result {
	h.once.Do(func() { h.run(ctx) })
	return h.Result()
}

func (h *Handler) run(ctx context.Context) {
	params, err := ParseParams(h.query)
	if err != nil {
		h.fail(ctx, Result{Status: StatusFailed, Reason: reasonOf(err)}, err)
		return
	}

	if err := h.exchange.ExchangeTwitter(ctx, params); err != nil {
		h.fail(ctx, Result{Status: StatusFailed, Variant: params.Variant, Reason: exchangeReason(err)}, err)
		return
	}

	h.set(Result{Status: StatusSucceeded, Variant: params.Variant})
	h.log.InfoContext(ctx, "twitter account connected", "variant", params.Variant.String())
	h.after(h.delay, func() { h.nav.Navigate(PathConnect) })
}

func (h *Handler) fail(ctx context.Context, r Result, err error) {
	h.set(r)
	h.log.WarnContext(ctx, "twitter callback failed", "reason", r.Reason, "error", err)
}

func (h *Handler) set(r Result) {
	h.mu.Lock()
	h.result = r
	h.mu.Unlock()
}

func reasonOf(err error) string {
	var cbErr *CallbackError
	if errors.As(err, &cbErr) {
		return cbErr.Reason
	}
	return ReasonExchange
}

// exchangeReason prefers the backend's "error" field, as the connect
// endpoint reports failures there.
func exchangeReason(err error) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Reason != "" {
			return apiErr.Reason
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	var cbErr *CallbackError
	if errors.As(err, &cbErr) && cbErr.Reason != "" {
		return cbErr.Reason
	}
	return ReasonExchange
}
