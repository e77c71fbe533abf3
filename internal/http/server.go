// Package http is the loopback server that receives the browser redirect
// at the end of a social-account authorization.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mace/internal/config"
	"mace/internal/logger"
	"mace/internal/oauthcb"
	"mace/internal/session"
)

const CallbackPath = "/social/callback/twitter"

type Server struct {
	cfg      config.Config
	router   chi.Router
	log      *slog.Logger
	limiter  *callbackLimiter
	exchange oauthcb.Exchanger
	nav      session.Navigator
	now      func() time.Time

	handlerOpts []oauthcb.Option

	srv      *http.Server
	ln       net.Listener
	done     chan oauthcb.Result
	doneOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithHandlerOptions passes extra options to every callback handler.
func WithHandlerOptions(opts ...oauthcb.Option) Option {
	return func(s *Server) { s.handlerOpts = append(s.handlerOpts, opts...) }
}

func NewServer(cfg config.Config, exchange oauthcb.Exchanger, nav session.Navigator, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		log:      logger.Discard(),
		limiter:  newCallbackLimiter(cfg.CallbackRateLimitRPS),
		exchange: exchange,
		nav:      nav,
		now:      time.Now,
		done:     make(chan oauthcb.Result, 1),
	}
	for _, o := range opts {
		o(s)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.rateLimit)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get(CallbackPath, s.handleTwitterCallback)
}

func (s *Server) Handler() http.Handler { return s.router }

// Start binds the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.CallbackAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.CallbackAddr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("callback server stopped", "error", err)
		}
	}()
	s.log.Debug("callback server listening", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound address, valid after Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.cfg.CallbackAddr
	}
	return s.ln.Addr().String()
}

func (s *Server) CallbackURL() string {
	return "http://" + s.Addr() + CallbackPath
}

// Done delivers the first finished callback result.
func (s *Server) Done() <-chan oauthcb.Result { return s.done }

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTwitterCallback(w http.ResponseWriter, r *http.Request) {
	opts := append([]oauthcb.Option{
		oauthcb.WithRedirectDelay(s.cfg.CallbackRedirectDelay),
		oauthcb.WithLogger(s.log),
	}, s.handlerOpts...)

	h := oauthcb.NewHandler(r.URL.Query(), s.exchange, s.nav, opts...)
	res := h.Run(r.Context())

	s.doneOnce.Do(func() { s.done <- res })

	code := http.StatusOK
	if res.Status == oauthcb.StatusFailed {
		code = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := resultPage.Execute(w, res); err != nil {
		s.log.WarnContext(r.Context(), "render callback page", "error", err)
	}
}

var resultPage = template.Must(template.New("result").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>mace</title></head>
<body style="font-family:sans-serif;text-align:center;margin-top:4em">
{{if eq .Status.String "succeeded"}}<h1>Success!</h1>
<p>Your Twitter account has been connected. You can return to the terminal.</p>
{{else}}<h1>Connection Failed</h1>
<p>{{.Reason}}</p>
<p>Run <code>mace connect twitter</code> to try again.</p>
{{end}}</body></html>
`))

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		next.ServeHTTP(ww, r)
		// query strings carry one-time authorization codes
		s.log.DebugContext(r.Context(), "callback request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", s.now().Sub(start),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientHost(r.RemoteAddr), s.now()) {
			s.writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
