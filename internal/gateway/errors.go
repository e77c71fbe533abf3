package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired matches any *APIError carrying a 401.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Message and Reason hold the body's "message" and "error" fields.
	Message   string
	Reason    string
	RequestID string
}

func (e *APIError) Error() string {
	text := e.Text()
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, text)
}

func (e *APIError) Is(target error) bool {
	return target == ErrSessionExpired && e.StatusCode == http.StatusUnauthorized
}

// Text is the backend-supplied explanation, message first.
func (e *APIError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Reason
}

// NetworkError is a transport failure; no response was received.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
