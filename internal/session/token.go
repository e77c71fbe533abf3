package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a bearer token without verifying it.
// The backend remains the only authority on whether a token is valid.
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

var errOpaqueToken = errors.New("token is not a JWT")

// InspectToken decodes the registered claims of a JWT. Opaque tokens
// return an error.
func InspectToken(token string) (TokenInfo, error) {
	if token == "" {
		return TokenInfo{}, errors.New("empty token")
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, errOpaqueToken
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Expired reports whether the token carries an exp claim that has passed.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

func tokenExpired(token string, now time.Time) bool {
	info, err := InspectToken(token)
	if err != nil {
		return false
	}
	return info.Expired(now)
}
