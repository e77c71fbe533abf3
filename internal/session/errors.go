package session

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrNotInitialized   = errors.New("session provider not initialized")
)

// AuthError is a recoverable sign-in or registration failure carrying a
// message fit for display.
type AuthError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth error (%d): %s", e.StatusCode, e.Message)
	}
	return "auth error: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}
