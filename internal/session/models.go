package session

import (
	"encoding/json"
	"strings"

	"golang.org/x/oauth2"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UnmarshalJSON folds unknown roles to RoleUser so an unexpected value
// never grants admin access.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ParseRole(raw)
	return nil
}

func ParseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// Identity is the user record returned by the backend. It is never persisted.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Plan   string `json:"plan"`
	Avatar string `json:"avatar,omitempty"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Credentials are the two persisted slots.
type Credentials struct {
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (c Credentials) Empty() bool {
	return c.Token == ""
}

// OAuth2 exposes the credentials as a bearer token.
func (c Credentials) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.Token,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
	}
}

// Grant is what a successful login or registration yields.
type Grant struct {
	Identity    *Identity
	Credentials Credentials
	Message     string
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResult reports whether registration also signed the user in.
type RegisterResult struct {
	Identity      *Identity
	Authenticated bool
	Message       string
}
