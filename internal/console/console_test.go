package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"mace/internal/api"
	"mace/internal/config"
	"mace/internal/gateway"
	"mace/internal/logger"
	"mace/internal/session"
)

type scriptedPrompter struct {
	answers map[string]string
	confirm bool
}

func (p scriptedPrompter) Input(title string, _ bool, value *string) error {
	v, ok := p.answers[title]
	if !ok {
		return fmt.Errorf("%s: %w", title, ErrNotInteractive)
	}
	*value = v
	return nil
}

func (p scriptedPrompter) Confirm(_ string, value *bool) error {
	*value = p.confirm
	return nil
}

func (p scriptedPrompter) MultiSelect(title string, _ []string, _ *[]string) error {
	return fmt.Errorf("%s: %w", title, ErrNotInteractive)
}

type ConsoleSuite struct {
	suite.Suite

	router chi.Router
	cfg    config.Config
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	prompt scriptedPrompter
	role   string
	ctx    context.Context
}

func TestConsoleSuite(t *testing.T) {
	suite.Run(t, new(ConsoleSuite))
}

func (s *ConsoleSuite) SetupTest() {
	s.ctx = context.Background()
	s.router = chi.NewRouter()
	srv := httptest.NewServer(s.router)
	s.T().Cleanup(srv.Close)

	s.cfg = config.Config{
		Environment:           config.EnvLocal,
		APIURLLocal:           srv.URL + "/api",
		Profile:               "test",
		SessionBackend:        config.SessionBackendFile,
		SessionDir:            s.T().TempDir(),
		CallbackAddr:          "127.0.0.1:0",
		CallbackRedirectDelay: time.Millisecond,
		LogLevel:              "error",
	}
	s.role = "user"
	s.prompt = scriptedPrompter{answers: map[string]string{}}

	s.handle(http.MethodGet, "/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{
			"id": "u1", "name": "Ann", "email": "ann@example.com", "role": s.role, "plan": "pro",
		}})
	})
}

func (s *ConsoleSuite) handle(method, pattern string, fn http.HandlerFunc) {
	s.router.Method(method, "/api"+pattern, fn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *ConsoleSuite) signIn() {
	store := session.NewFileStore(s.cfg.SessionDir, s.cfg.Profile)
	s.Require().NoError(store.Save(s.ctx, session.Credentials{Token: "good-token", RefreshToken: "r"}))
}

func (s *ConsoleSuite) storedCredentials() session.Credentials {
	creds, err := session.NewFileStore(s.cfg.SessionDir, s.cfg.Profile).Load(s.ctx)
	s.Require().NoError(err)
	return creds
}

func (s *ConsoleSuite) run(args ...string) (int, *Console) {
	s.stdout = &bytes.Buffer{}
	s.stderr = &bytes.Buffer{}
	c := &Console{
		Stdout: s.stdout,
		Stderr: s.stderr,
		Prompt: s.prompt,
		Config: func() config.Config { return s.cfg },
	}
	code := c.Run(s.ctx, append([]string{"mace"}, args...))
	return code, c
}

func (s *ConsoleSuite) TestVersion() {
	code, _ := s.run("version")
	s.Equal(0, code)
	s.Contains(s.stdout.String(), "dev-")
}

func (s *ConsoleSuite) TestLoginPersistsSession() {
	s.handle(http.MethodPost, "/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "good-token",
			"user":  map[string]any{"id": "u1", "name": "Ann", "role": "user"},
		})
	})

	code, c := s.run("login", "--email", "ann@example.com", "--password", "pw")
	s.Require().Equal(0, code, s.stderr.String())
	s.Contains(s.stdout.String(), "Welcome back, Ann!")
	s.Equal("good-token", s.storedCredentials().Token)
	s.Equal("/dashboard", c.nav.Location())
}

func (s *ConsoleSuite) TestLoginPromptsForMissingValues() {
	s.handle(http.MethodPost, "/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "good-token", "user": map[string]any{"id": "u1", "name": "Ann"}})
	})
	s.prompt.answers["Email Address"] = "ann@example.com"
	s.prompt.answers["Password"] = "pw"

	code, _ := s.run("login")
	s.Equal(0, code, s.stderr.String())
}

func (s *ConsoleSuite) TestLoginRejected() {
	s.signIn()
	s.handle(http.MethodPost, "/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	})

	code, _ := s.run("login", "--email", "ann@example.com", "--password", "wrong")
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "Invalid credentials")
	s.Equal("good-token", s.storedCredentials().Token, "a rejected login keeps the existing session")
}

func (s *ConsoleSuite) TestRegisterWithoutTokenGoesToLogin() {
	s.handle(http.MethodPost, "/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"message": "Check your inbox to verify your email."})
	})

	code, c := s.run("register", "--name", "Ann", "--email", "ann@example.com", "--password", "longenough")
	s.Require().Equal(0, code, s.stderr.String())
	s.Contains(s.stdout.String(), "Check your inbox")
	s.Equal("/login", c.nav.Location())
	s.True(s.storedCredentials().Empty())
}

func (s *ConsoleSuite) TestLogout() {
	s.signIn()
	code, c := s.run("logout")
	s.Equal(0, code)
	s.True(s.storedCredentials().Empty())
	s.Equal("/login", c.nav.Location())
}

func (s *ConsoleSuite) TestStatusMasksToken() {
	s.signIn()
	code, _ := s.run("status")
	s.Require().Equal(0, code, s.stderr.String())
	out := s.stdout.String()
	s.Contains(out, "authenticated")
	s.Contains(out, "Ann <ann@example.com>")
	s.NotContains(out, "good-token")
	s.Contains(out, "opaque")
}

func (s *ConsoleSuite) TestProtectedScreenSignedOut() {
	code, c := s.run("dashboard")
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "not signed in")
	s.Equal([]string{"/login"}, c.nav.History())
}

func (s *ConsoleSuite) TestDashboard() {
	s.signIn()
	s.handle(http.MethodGet, "/posts/scheduled", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("5", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"posts":      []map[string]any{{"_id": "p1", "caption": "Launch day", "platforms": []string{"twitter"}, "status": "pending", "scheduledTime": "2026-03-01T10:00:00Z"}},
			"pagination": map[string]any{"total": 7},
		})
	})
	s.handle(http.MethodGet, "/social/accounts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"accounts": []map[string]any{{"platform": "twitter", "username": "ann", "isActive": true}}})
	})

	code, _ := s.run("dashboard")
	s.Require().Equal(0, code, s.stderr.String())
	out := s.stdout.String()
	s.Contains(out, "Scheduled posts: 7")
	s.Contains(out, "Launch day")
	s.Contains(out, "@ann")
}

func (s *ConsoleSuite) TestDashboardConcurrentRejectionsNavigateOnce() {
	s.signIn()
	var rejected atomic.Int32
	reject := func(w http.ResponseWriter, r *http.Request) {
		rejected.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}
	s.handle(http.MethodGet, "/posts/scheduled", reject)
	s.handle(http.MethodGet, "/social/accounts", reject)

	code, c := s.run("dashboard")
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "session has expired")
	s.True(s.storedCredentials().Empty())
	s.Equal([]string{"/login"}, c.nav.History())
}

func (s *ConsoleSuite) TestAdminLogsRequiresAdmin() {
	s.signIn()
	code, c := s.run("admin", "logs")
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "administrator")
	s.Equal([]string{"/dashboard"}, c.nav.History())
}

func (s *ConsoleSuite) TestAdminLogs() {
	s.signIn()
	s.role = "admin"
	s.handle(http.MethodGet, "/admin/logs", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("failure", r.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, map[string]any{"logs": []map[string]any{{
			"_id": "l1", "type": "auth", "action": "login", "status": "failure",
			"userId": map[string]any{"_id": "u2", "name": "Bo", "email": "bo@example.com"}, "errorMessage": "bad password",
		}}})
	})

	code, _ := s.run("admin", "logs", "--status", "failure")
	s.Require().Equal(0, code, s.stderr.String())
	s.Contains(s.stdout.String(), "Bo (bo@example.com)")
	s.Contains(s.stdout.String(), "bad password")
}

func (s *ConsoleSuite) TestAdminLogsRejectsUnknownFilter() {
	code, _ := s.run("admin", "logs", "--type", "billing")
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "billing")
}

func (s *ConsoleSuite) TestSchedulePost() {
	s.signIn()
	var body map[string]any
	s.handle(http.MethodPost, "/posts/schedule", func(w http.ResponseWriter, r *http.Request) {
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]any{"post": map[string]any{"_id": "p42"}})
	})

	code, _ := s.run("posts", "schedule",
		"--caption", "Hello", "--hashtags", "#one #two",
		"--platform", "twitter", "--platform", "linkedin",
		"--at", "2026-06-01T09:00:00Z")
	s.Require().Equal(0, code, s.stderr.String())
	s.Contains(s.stdout.String(), "p42")
	s.Equal([]any{"#one", "#two"}, body["hashtags"])
	s.Equal([]any{"twitter", "linkedin"}, body["platforms"])
	s.Equal("2026-06-01T09:00:00Z", body["scheduledTime"])
}

func (s *ConsoleSuite) TestSchedulePostUnknownPlatform() {
	s.signIn()
	code, _ := s.run("posts", "schedule", "--caption", "x", "--platform", "myspace", "--at", "2026-06-01 09:00")
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "myspace")
}

func (s *ConsoleSuite) TestDeletePost() {
	s.signIn()
	var deleted string
	s.handle(http.MethodDelete, "/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = chi.URLParam(r, "id")
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	code, _ := s.run("posts", "delete", "--yes", "p7")
	s.Require().Equal(0, code, s.stderr.String())
	s.Equal("p7", deleted)
}

func (s *ConsoleSuite) TestDeletePostDeclined() {
	s.signIn()
	s.prompt.confirm = false
	code, _ := s.run("posts", "delete", "p7")
	s.Equal(0, code)
	s.Contains(s.stdout.String(), "Cancelled")
}

func (s *ConsoleSuite) TestProfilePasswordMismatch() {
	s.signIn()
	s.prompt.answers["Current Password"] = "old"
	s.prompt.answers["New Password"] = "new-one"
	s.prompt.answers["Confirm New Password"] = "new-two"

	code, _ := s.run("settings", "profile", "--change-password")
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "do not match")
}

func (s *ConsoleSuite) TestConnectTwitter() {
	s.signIn()
	var (
		mu        sync.Mutex
		exchanged map[string]any
	)
	s.handle(http.MethodGet, "/social/connect/twitter", func(w http.ResponseWriter, r *http.Request) {
		redirect := r.URL.Query().Get("redirect_uri")
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://twitter.example/authorize"})
		// the browser follows the provider's redirect back to the console
		go func() {
			resp, err := http.Get(redirect + "?oauth_token=tok&oauth_verifier=ver")
			if err == nil {
				resp.Body.Close()
			}
		}()
	})
	s.handle(http.MethodPost, "/social/callback/twitter", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&exchanged)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	s.handle(http.MethodGet, "/social/accounts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"accounts": []map[string]any{{"platform": "twitter", "username": "ann", "displayName": "Ann", "isActive": true}}})
	})

	code, c := s.run("connect", "twitter", "--timeout", "5s")
	s.Require().Equal(0, code, s.stderr.String())
	out := s.stdout.String()
	s.Contains(out, "https://twitter.example/authorize")
	s.Contains(out, "Success!")
	s.Contains(out, "Ann (@ann)")
	s.Equal("/connect", c.nav.Location())

	mu.Lock()
	defer mu.Unlock()
	s.Equal(map[string]any{"oauth_token": "tok", "oauth_verifier": "ver"}, exchanged)
}

func (s *ConsoleSuite) TestConnectTwitterDenied() {
	s.signIn()
	s.handle(http.MethodGet, "/social/connect/twitter", func(w http.ResponseWriter, r *http.Request) {
		redirect := r.URL.Query().Get("redirect_uri")
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://twitter.example/authorize"})
		go func() {
			resp, err := http.Get(redirect + "?denied=xyz")
			if err == nil {
				resp.Body.Close()
			}
		}()
	})

	code, _ := s.run("connect", "twitter", "--timeout", "5s")
	s.Equal(1, code)
	s.Contains(s.stderr.String(), "Authorization denied by user.")
}

func TestGroupByDay(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	at := func(s string) time.Time {
		tm, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return tm
	}
	posts := []api.Post{
		{ID: "late", ScheduledTime: at("2026-03-05T20:00:00Z")},
		{ID: "early", ScheduledTime: at("2026-03-05T06:00:00Z")},
		{ID: "rolls-over", ScheduledTime: at("2026-03-31T23:30:00Z")},
		{ID: "first", ScheduledTime: at("2026-02-28T22:30:00Z")},
		{ID: "other-month", ScheduledTime: at("2026-04-10T10:00:00Z")},
	}

	days := groupByDay(posts, time.Date(2026, 3, 15, 0, 0, 0, 0, loc), loc)
	require.Len(t, days, 2)
	assert.Equal(t, 1, days[0].Date.Day())
	assert.Equal(t, "first", days[0].Posts[0].ID)
	assert.Equal(t, 5, days[1].Date.Day())
	assert.Equal(t, []string{"early", "late"}, []string{days[1].Posts[0].ID, days[1].Posts[1].ID})
}

func TestParseWhen(t *testing.T) {
	loc := time.FixedZone("X", -5*3600)
	got, err := parseWhen("2026-06-01 09:00", loc)
	require.NoError(t, err)
	assert.Equal(t, "2026-06-01T14:00:00Z", got.UTC().Format(time.RFC3339))

	got, err = parseWhen("2026-06-01T09:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, 9, got.UTC().Hour())

	_, err = parseWhen("tomorrow", loc)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	assert.Contains(t, tokenExpiry("not-a-jwt", time.Now()), "opaque")
}

func TestNavigatorWait(t *testing.T) {
	nav := NewTerminalNavigator(logger.Discard())
	go func() {
		time.Sleep(5 * time.Millisecond)
		nav.Navigate("/settings")
		nav.Navigate("/connect")
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, nav.Wait(ctx, "/connect"))
	assert.Equal(t, []string{"/settings", "/connect"}, nav.History())
}

func TestDescribe(t *testing.T) {
	unauthorized := &gateway.APIError{Method: "POST", Path: "/auth/login", StatusCode: http.StatusUnauthorized}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth error over a 401", &session.AuthError{Message: "Invalid credentials", StatusCode: 401, Err: unauthorized}, "Invalid credentials"},
		{"rejected credential", fmt.Errorf("dashboard: %w", unauthorized), ErrSessionEnded.Error()},
		{"backend message", &gateway.APIError{StatusCode: 500, Message: "boom"}, "boom"},
		{"bare status", &gateway.APIError{StatusCode: 404}, "request failed with status 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.err))
		})
	}
}
