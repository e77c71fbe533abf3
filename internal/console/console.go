// Package console is the mace command tree. Each command enters a screen
// through the route guard and talks to the backend through the api client.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"mace/internal/app"
	"mace/internal/config"
	"mace/internal/gateway"
	"mace/internal/guard"
	"mace/internal/logger"
	"mace/internal/session"
)

var (
	ErrSignedOut    = errors.New("not signed in: run `mace login`")
	ErrAdminOnly    = errors.New("this screen requires an administrator account")
	ErrSessionEnded = errors.New("your session has expired: run `mace login` to sign in again")
)

// Console holds what the commands share for one invocation.
type Console struct {
	Stdout io.Writer
	Stderr io.Writer
	Prompt Prompter
	// Config is the environment configuration before flags are applied.
	Config func() config.Config

	cfg config.Config
	log *slog.Logger
	nav *TerminalNavigator

	once    sync.Once
	app     *app.Application
	appErr  error
	started bool
}

func New() *Console {
	return &Console{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Prompt: HuhPrompter{},
		Config: config.Load,
	}
}

// App builds the urfave/cli application.
func (c *Console) App() *cli.App {
	return &cli.App{
		Name:                 "mace",
		Usage:                "Schedule and publish social media posts from the terminal",
		Version:              Version(),
		Writer:               c.Stdout,
		ErrWriter:            c.Stderr,
		EnableBashCompletion: true,
		Flags:                globalFlags(),
		Before:               c.setup,
		After:                c.teardown,
		Commands: []*cli.Command{
			c.loginCommand(),
			c.registerCommand(),
			c.logoutCommand(),
			c.statusCommand(),
			c.dashboardCommand(),
			c.postsCommand(),
			c.calendarCommand(),
			c.accountsCommand(),
			c.connectCommand(),
			c.aiCommand(),
			c.settingsCommand(),
			c.adminCommand(),
			versionCommand(),
		},
	}
}

// Run executes args and returns the process exit code.
func (c *Console) Run(ctx context.Context, args []string) int {
	if err := c.App().RunContext(ctx, args); err != nil {
		fmt.Fprintln(c.Stderr, styleError.Render("Error: "+describe(err)))
		return 1
	}
	return 0
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "env", Usage: "backend environment: local or production"},
		&cli.StringFlag{Name: "host", Usage: "host the console runs on; loopback selects the local backend"},
		&cli.StringFlag{Name: "api-url", Usage: "override the backend base URL"},
		&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Usage: "session profile name"},
		&cli.StringFlag{Name: "session-backend", Usage: "file, redis or memory"},
		&cli.StringFlag{Name: "redis-url", Usage: "redis URL for the redis session backend"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-format", Usage: "text or json"},
	}
}

func (c *Console) setup(ctx *cli.Context) error {
	cfg := c.Config()
	if ctx.IsSet("env") || ctx.IsSet("host") {
		if ctx.IsSet("host") {
			cfg.Host = ctx.String("host")
		}
		cfg.Environment = config.ResolveEnvironment(strings.ToLower(ctx.String("env")), cfg.Host)
	}
	if ctx.IsSet("api-url") {
		cfg.APIURLLocal = ctx.String("api-url")
		cfg.APIURLProduction = ctx.String("api-url")
	}
	if ctx.IsSet("profile") {
		cfg.Profile = ctx.String("profile")
	}
	if ctx.IsSet("session-backend") {
		cfg.SessionBackend = strings.ToLower(ctx.String("session-backend"))
	}
	if ctx.IsSet("redis-url") {
		cfg.RedisURL = ctx.String("redis-url")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("log-format") {
		cfg.LogFormat = ctx.String("log-format")
	}

	c.cfg = cfg
	c.log = logger.New(c.Stderr, cfg.LogLevel, cfg.LogFormat)
	c.nav = NewTerminalNavigator(c.log)
	return nil
}

func (c *Console) teardown(ctx *cli.Context) error {
	if c.app != nil {
		c.app.Shutdown(ctx.Context)
	}
	return nil
}

// application builds the wiring on first use so that commands like
// version never touch the session backend.
func (c *Console) application(ctx context.Context) (*app.Application, error) {
	c.once.Do(func() {
		c.app, c.appErr = app.NewApplication(ctx, c.cfg, c.nav, c.log)
	})
	return c.app, c.appErr
}

// session returns the application after the start-up session check.
func (c *Console) session(ctx context.Context) (*app.Application, error) {
	a, err := c.application(ctx)
	if err != nil {
		return nil, err
	}
	if !c.started {
		a.Start(ctx)
		c.started = true
	}
	return a, nil
}

// enter admits the caller to a guarded screen.
func (c *Console) enter(ctx context.Context, path string) (*app.Application, *session.Identity, error) {
	a, err := c.session(ctx)
	if err != nil {
		return nil, nil, err
	}
	d, id, err := a.Guard.Enter(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if d.Outcome == guard.Redirect {
		if d.Target == session.PathDashboard {
			return nil, nil, ErrAdminOnly
		}
		return nil, nil, ErrSignedOut
	}
	return a, id, nil
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.Stdout, format, args...)
}

func (c *Console) println(args ...any) {
	fmt.Fprintln(c.Stdout, args...)
}

// describe renders an error for the terminal.
func describe(err error) string {
	var authErr *session.AuthError
	var apiErr *gateway.APIError
	var netErr *gateway.NetworkError
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.Is(err, gateway.ErrSessionExpired):
		return ErrSessionEnded.Error()
	case errors.As(err, &apiErr):
		if text := apiErr.Text(); text != "" {
			return text
		}
		return fmt.Sprintf("request failed with status %d", apiErr.StatusCode)
	case errors.As(err, &netErr):
		return "cannot reach the backend: " + netErr.Err.Error()
	default:
		return err.Error()
	}
}
