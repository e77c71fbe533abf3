package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"mace/internal/api"
	"mace/internal/config"
	"mace/internal/gateway"
	"mace/internal/guard"
	httpserver "mace/internal/http"
	"mace/internal/session"
)

// Application wires together config, the session store, the backend
// gateway, and the session provider.
type Application struct {
	cfg   config.Config
	log   *slog.Logger
	redis *redis.Client

	Store   session.Store
	Gateway *gateway.Client
	API     *api.Client
	Session *session.Provider
	Guard   *guard.Guard
	Nav     session.Navigator
}

func NewApplication(ctx context.Context, cfg config.Config, nav session.Navigator, log *slog.Logger) (*Application, error) {
	a := &Application{cfg: cfg, log: log, Nav: nav}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store

	gw, err := gateway.New(cfg.APIBaseURL(), gateway.WithLogger(log))
	if err != nil {
		a.Shutdown(ctx)
		return nil, fmt.Errorf("backend gateway: %w", err)
	}
	a.Gateway = gw
	a.API = api.New(gw)
	a.Session = session.NewProvider(store, a.API.Auth, nav, session.WithLogger(log))
	gw.Bind(a.Session, a.Session.Expire)
	a.Guard = guard.New(a.Session, nav)

	return a, nil
}

func (a *Application) openStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), nil
	case config.SessionBackendRedis:
		client, err := session.NewRedisClient(a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		// An unreachable server is not fatal: the provider treats store
		// failures as signed out.
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(pctx).Err(); err != nil {
			a.log.WarnContext(ctx, "redis session store unreachable", "error", err)
		}
		cancel()
		a.redis = client
		return session.NewRedisStore(client, a.cfg.Profile), nil
	case config.SessionBackendFile, "":
		return session.NewFileStore(a.cfg.SessionDir, a.cfg.Profile), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", a.cfg.SessionBackend)
	}
}

// Start runs the start-up session check.
func (a *Application) Start(ctx context.Context) session.Snapshot {
	snap := a.Session.Init(ctx)
	a.log.DebugContext(ctx, "session resolved",
		"state", snap.State.String(),
		"backend", a.cfg.SessionBackend,
		"api", a.Gateway.BaseURL(),
	)
	return snap
}

// CallbackServer builds the loopback server for a connect flow.
func (a *Application) CallbackServer() *httpserver.Server {
	return httpserver.NewServer(a.cfg, a.API.Social, a.Nav, httpserver.WithLogger(a.log))
}

func (a *Application) Config() config.Config { return a.cfg }

func (a *Application) Shutdown(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WarnContext(ctx, "closing redis", "error", err)
		}
	}
}
