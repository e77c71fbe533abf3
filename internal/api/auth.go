package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"mace/internal/gateway"
	"mace/internal/session"
)

// AuthService implements session.Authenticator.
type AuthService struct {
	gw *gateway.Client
}

var _ session.Authenticator = (*AuthService)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type grantResponse struct {
	User         *session.Identity `json:"user"`
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
	Message      string            `json:"message"`
}

func (r grantResponse) grant() *session.Grant {
	return &session.Grant{
		Identity:    r.User,
		Credentials: session.Credentials{Token: r.Token, RefreshToken: r.RefreshToken},
		Message:     r.Message,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*session.Grant, error) {
	var resp grantResponse
	err := s.gw.Do(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		Body:      loginRequest{Email: email, Password: password},
		Anonymous: true,
	}, &resp)
	if err != nil {
		return nil, rejection(err, "Login failed")
	}
	return resp.grant(), nil
}

func (s *AuthService) Register(ctx context.Context, req session.RegisterRequest) (*session.Grant, error) {
	var resp grantResponse
	err := s.gw.Do(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      "/auth/register",
		Body:      req,
		Anonymous: true,
	}, &resp)
	if err != nil {
		return nil, rejection(err, "Registration failed")
	}
	return resp.grant(), nil
}

// WhoAmI looks up the identity behind the currently attached token.
func (s *AuthService) WhoAmI(ctx context.Context) (*session.Identity, error) {
	var resp struct {
		User *session.Identity `json:"user"`
	}
	if err := s.gw.Get(ctx, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, errors.New("identity lookup: response has no user")
	}
	return resp.User, nil
}

// rejection turns a 4xx from the auth endpoints into a displayable
// *session.AuthError. Server and transport failures pass through.
func rejection(err error, fallback string) error {
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode >= http.StatusInternalServerError {
		return err
	}
	msg := apiErr.Text()
	if msg == "" {
		msg = fallback
	}
	// The rejection is not chained to the *APIError: a 401 here is a bad
	// password, not an expired session.
	cause := fmt.Errorf("%s %s: status %d", apiErr.Method, apiErr.Path, apiErr.StatusCode)
	return &session.AuthError{Message: msg, StatusCode: apiErr.StatusCode, Err: cause}
}
