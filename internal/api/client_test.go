package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"mace/internal/gateway"
	"mace/internal/oauthcb"
	"mace/internal/session"
)

type tokenSource string

func (t tokenSource) Credentials() (string, uint64, bool) { return string(t), 1, t != "" }

type APISuite struct {
	suite.Suite

	router  chi.Router
	client  *Client
	expired int
	ctx     context.Context
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.router = chi.NewRouter()
	srv := httptest.NewServer(s.router)
	s.T().Cleanup(srv.Close)

	gw, err := gateway.New(srv.URL + "/api")
	s.Require().NoError(err)
	s.expired = 0
	gw.Bind(tokenSource("tok"), func(uint64) { s.expired++ })
	s.client = New(gw)
	s.ctx = context.Background()
}

func (s *APISuite) handle(method, pattern string, fn http.HandlerFunc) {
	s.router.Method(method, "/api"+pattern, fn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t require.TestingT, r *http.Request) map[string]any {
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func (s *APISuite) TestLoginGrant() {
	s.handle(http.MethodPost, "/auth/login", func(w http.ResponseWriter, r *http.Request) {
		s.Empty(r.Header.Get("Authorization"))
		body := decodeBody(s.T(), r)
		s.Equal("a@b.co", body["email"])
		writeJSON(w, http.StatusOK, map[string]any{
			"token":        "t1",
			"refreshToken": "r1",
			"user":         map[string]any{"id": "u1", "name": "Ann", "email": "a@b.co", "role": "admin"},
		})
	})

	grant, err := s.client.Auth.Login(s.ctx, "a@b.co", "secret")
	s.Require().NoError(err)
	s.Equal("t1", grant.Credentials.Token)
	s.Equal("r1", grant.Credentials.RefreshToken)
	s.True(grant.Identity.IsAdmin())
}

func (s *APISuite) TestLoginRejectionIsAuthError() {
	s.handle(http.MethodPost, "/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	})

	_, err := s.client.Auth.Login(s.ctx, "a@b.co", "wrong")
	var authErr *session.AuthError
	s.Require().ErrorAs(err, &authErr)
	s.Equal("Invalid credentials", authErr.Message)
	s.Equal(http.StatusUnauthorized, authErr.StatusCode)
	s.Zero(s.expired, "anonymous request must not expire the session")
	s.NotErrorIs(err, gateway.ErrSessionExpired)
}

func (s *APISuite) TestRegisterFallbackMessage() {
	s.handle(http.MethodPost, "/auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := s.client.Auth.Register(s.ctx, session.RegisterRequest{Name: "A", Email: "a@b.co", Password: "longenough"})
	var authErr *session.AuthError
	s.Require().ErrorAs(err, &authErr)
	s.Equal("Registration failed", authErr.Message)
}

func (s *APISuite) TestServerErrorPassesThrough() {
	s.handle(http.MethodPost, "/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream"})
	})

	_, err := s.client.Auth.Login(s.ctx, "a@b.co", "pw")
	var authErr *session.AuthError
	s.False(errors.As(err, &authErr))
	s.True(gateway.IsStatus(err, http.StatusBadGateway))
}

func (s *APISuite) TestWhoAmI() {
	s.handle(http.MethodGet, "/auth/me", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "u1", "role": "owner"}})
	})

	id, err := s.client.Auth.WhoAmI(s.ctx)
	s.Require().NoError(err)
	s.Equal(session.RoleUser, id.Role)
}

func (s *APISuite) TestWhoAmIWithoutUser() {
	s.handle(http.MethodGet, "/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	_, err := s.client.Auth.WhoAmI(s.ctx)
	s.Error(err)
}

func (s *APISuite) TestWhoAmIUnauthorizedExpires() {
	s.handle(http.MethodGet, "/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := s.client.Auth.WhoAmI(s.ctx)
	s.ErrorIs(err, gateway.ErrSessionExpired)
	s.Equal(1, s.expired)
}

func (s *APISuite) TestListScheduled() {
	s.handle(http.MethodGet, "/posts/scheduled", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("5", r.URL.Query().Get("limit"))
		s.Equal("pending", r.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, map[string]any{
			"posts": []map[string]any{{
				"_id":           "p1",
				"caption":       "hello",
				"platforms":     []string{"twitter"},
				"scheduledTime": "2026-03-01T10:00:00Z",
				"status":        "pending",
			}},
			"pagination": map[string]any{"total": 12},
		})
	})

	list, err := s.client.Posts.ListScheduled(s.ctx, ListOptions{Status: PostPending, Limit: 5})
	s.Require().NoError(err)
	s.Require().Len(list.Posts, 1)
	s.Equal("p1", list.Posts[0].ID)
	s.Equal(12, list.Total())
	s.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), list.Posts[0].ScheduledTime)
}

func (s *APISuite) TestListScheduledAllOmitsStatus() {
	s.handle(http.MethodGet, "/posts/scheduled", func(w http.ResponseWriter, r *http.Request) {
		s.False(r.URL.Query().Has("status"))
		writeJSON(w, http.StatusOK, map[string]any{"posts": []any{}})
	})

	list, err := s.client.Posts.ListScheduled(s.ctx, ListOptions{Status: "all"})
	s.Require().NoError(err)
	s.Zero(list.Total())
}

func (s *APISuite) TestSchedule() {
	when := time.Date(2026, 5, 4, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	s.handle(http.MethodPost, "/posts/schedule", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(s.T(), r)
		s.Equal("2026-05-04T08:30:00Z", body["scheduledTime"])
		s.Equal([]any{"#a", "#b"}, body["hashtags"])
		writeJSON(w, http.StatusCreated, map[string]any{"post": map[string]any{"_id": "p9", "status": "pending"}})
	})

	post, err := s.client.Posts.Schedule(s.ctx, ScheduleRequest{
		Caption:       "launch",
		Hashtags:      SplitHashtags("  #a   #b "),
		Platforms:     []string{"twitter"},
		ScheduledTime: when,
	})
	s.Require().NoError(err)
	s.Equal("p9", post.ID)
}

func (s *APISuite) TestScheduleValidation() {
	_, err := s.client.Posts.Schedule(s.ctx, ScheduleRequest{Caption: "x", ScheduledTime: time.Now()})
	s.Error(err)
	_, err = s.client.Posts.Schedule(s.ctx, ScheduleRequest{Platforms: []string{"twitter"}, ScheduledTime: time.Now()})
	s.Error(err)
	_, err = s.client.Posts.Schedule(s.ctx, ScheduleRequest{Caption: "x", Platforms: []string{"twitter"}})
	s.Error(err)
}

func (s *APISuite) TestDeletePost() {
	var deleted string
	s.handle(http.MethodDelete, "/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = chi.URLParam(r, "id")
		w.WriteHeader(http.StatusNoContent)
	})

	s.Require().NoError(s.client.Posts.Delete(s.ctx, "p1"))
	s.Equal("p1", deleted)
	s.Error(s.client.Posts.Delete(s.ctx, " "))
}

func (s *APISuite) TestAccountsAndConnected() {
	s.handle(http.MethodGet, "/social/accounts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"accounts": []map[string]any{
			{"platform": "twitter", "username": "old", "isActive": false},
			{"platform": "twitter", "username": "ann", "isActive": true},
		}})
	})

	accounts, err := s.client.Social.Accounts(s.ctx)
	s.Require().NoError(err)
	acct, ok := Connected(accounts, "twitter")
	s.True(ok)
	s.Equal("ann", acct.Username)
	_, ok = Connected(accounts, "linkedin")
	s.False(ok)
}

func (s *APISuite) TestTwitterAuthURL() {
	s.handle(http.MethodGet, "/social/connect/twitter", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("http://127.0.0.1:8765/social/callback/twitter", r.URL.Query().Get("redirect_uri"))
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://x.example/authorize?x=1"})
	})

	u, err := s.client.Social.TwitterAuthURL(s.ctx, "http://127.0.0.1:8765/social/callback/twitter")
	s.Require().NoError(err)
	s.Equal("https://x.example/authorize?x=1", u)
}

func (s *APISuite) TestExchangeTwitterSendsVariantPayload() {
	var got map[string]any
	s.handle(http.MethodPost, "/social/callback/twitter", func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(s.T(), r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	p := oauthcb.Params{Variant: oauthcb.VariantOAuth2, Code: "c", State: "st"}
	s.Require().NoError(s.client.Social.ExchangeTwitter(s.ctx, p))
	s.Equal(map[string]any{"code": "c", "state": "st"}, got)
}

func (s *APISuite) TestGenerateCaptionDefaults() {
	s.handle(http.MethodPost, "/ai/generate-caption", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(s.T(), r)
		s.Equal("professional", body["tone"])
		s.Equal("instagram", body["platform"])
		writeJSON(w, http.StatusOK, map[string]string{"caption": "Fresh coffee"})
	})

	c, err := s.client.AI.GenerateCaption(s.ctx, CaptionRequest{Prompt: "coffee"})
	s.Require().NoError(err)
	s.Equal("Fresh coffee", c)

	_, err = s.client.AI.GenerateCaption(s.ctx, CaptionRequest{})
	s.Error(err)
}

func (s *APISuite) TestGenerateHashtags() {
	s.handle(http.MethodPost, "/ai/generate-hashtags", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(s.T(), r)
		s.EqualValues(10, body["count"])
		writeJSON(w, http.StatusOK, map[string]any{"hashtags": []string{"#coffee", "#morning"}})
	})

	tags, err := s.client.AI.GenerateHashtags(s.ctx, HashtagRequest{Content: "coffee"})
	s.Require().NoError(err)
	s.Equal([]string{"#coffee", "#morning"}, tags)
}

func (s *APISuite) TestUpdateProfileNeverSendsConfirmation() {
	s.handle(http.MethodPut, "/user/profile", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(s.T(), r)
		s.NotContains(body, "ConfirmPassword")
		s.Equal("new-pass", body["newPassword"])
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	err := s.client.User.UpdateProfile(s.ctx, ProfileUpdate{
		Name: "Ann", Email: "a@b.co", CurrentPassword: "old", NewPassword: "new-pass", ConfirmPassword: "new-pass",
	})
	s.NoError(err)
}

func (s *APISuite) TestUpdateProfileMismatch() {
	err := s.client.User.UpdateProfile(s.ctx, ProfileUpdate{
		Name: "Ann", Email: "a@b.co", CurrentPassword: "old", NewPassword: "a", ConfirmPassword: "b",
	})
	s.ErrorIs(err, ErrPasswordMismatch)
}

func (s *APISuite) TestUpdatePreferences() {
	s.handle(http.MethodPut, "/user/preferences", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(s.T(), r)
		s.Equal("UTC", body["timezone"])
		s.Equal([]any{"instagram", "twitter"}, body["defaultPlatforms"])
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	s.NoError(s.client.User.UpdatePreferences(s.ctx, DefaultPreferences()))
}

func (s *APISuite) TestAdminLogsFilters() {
	s.handle(http.MethodGet, "/admin/logs", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.Equal("auth", q.Get("type"))
		s.False(q.Has("status"))
		writeJSON(w, http.StatusOK, map[string]any{"logs": []map[string]any{
			{"_id": "l1", "type": "auth", "status": "success", "userId": "u1", "createdAt": "2026-01-01T00:00:00Z"},
			{"_id": "l2", "type": "auth", "status": "failure", "userId": map[string]any{"_id": "u2", "name": "Bo", "email": "bo@x.io"}},
			{"_id": "l3", "type": "system", "status": "info"},
		}})
	})

	logs, err := s.client.Admin.Logs(s.ctx, LogFilter{Type: "auth", Status: "all"})
	s.Require().NoError(err)
	s.Require().Len(logs, 3)
	s.Equal("u1", logs[0].User.ID)
	s.Equal("Bo (bo@x.io)", logs[1].User.String())
	s.Nil(logs[2].User)
}

func TestLogUserString(t *testing.T) {
	var u *LogUser
	assert.Empty(t, u.String())
	assert.Equal(t, "Unknown (u1)", (&LogUser{ID: "u1"}).String())
}

func TestSplitHashtags(t *testing.T) {
	assert.Equal(t, []string{}, SplitHashtags("   "))
	assert.Equal(t, []string{"#a", "#b"}, SplitHashtags("#a\t#b"))
}
