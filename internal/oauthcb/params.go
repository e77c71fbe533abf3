package oauthcb

import (
	"net/url"
	"strings"
)

// Variant tags which OAuth flow produced the redirect.
type Variant int

const (
	VariantOAuth1 Variant = iota + 1
	VariantOAuth2
)

func (v Variant) String() string {
	switch v {
	case VariantOAuth1:
		return "oauth1.0a"
	case VariantOAuth2:
		return "oauth2"
	default:
		return "unknown"
	}
}

// Params is the resolved redirect. Exactly one pair is set, selected by Variant.
type Params struct {
	Variant Variant

	// OAuth 1.0a
	Token    string
	Verifier string

	// OAuth 2.0
	Code  string
	State string
}

// Payload is the body forwarded to the backend's token exchange.
func (p Params) Payload() map[string]string {
	if p.Variant == VariantOAuth2 {
		return map[string]string{"state": p.State, "code": p.Code}
	}
	return map[string]string{"oauth_token": p.Token, "oauth_verifier": p.Verifier}
}

const (
	ReasonDenied        = "Authorization denied by user."
	ReasonMissingOAuth1 = "Missing oauth_token or oauth_verifier parameters."
	ReasonMissingOAuth2 = "Missing code or state parameters."
	ReasonExchange      = "Failed to connect Twitter account."
)

// CallbackError ends a callback before or after the backend exchange.
type CallbackError struct {
	Reason string
	Err    error
}

func (e *CallbackError) Error() string { return "oauth callback: " + e.Reason }

func (e *CallbackError) Unwrap() error { return e.Err }

// ParseParams resolves the redirect query once. A denial or an incomplete
// parameter set is returned as *CallbackError.
func ParseParams(q url.Values) (Params, error) {
	get := func(key string) string { return strings.TrimSpace(q.Get(key)) }

	if q.Has("denied") {
		return Params{}, &CallbackError{Reason: ReasonDenied}
	}
	if oauthErr := get("error"); oauthErr != "" {
		if oauthErr == "access_denied" {
			return Params{}, &CallbackError{Reason: ReasonDenied}
		}
		if desc := get("error_description"); desc != "" {
			return Params{}, &CallbackError{Reason: desc}
		}
		return Params{}, &CallbackError{Reason: "Authorization failed: " + oauthErr}
	}

	token, verifier := get("oauth_token"), get("oauth_verifier")
	code, state := get("code"), get("state")

	switch {
	case token != "" && verifier != "":
		return Params{Variant: VariantOAuth1, Token: token, Verifier: verifier}, nil
	case code != "" && state != "":
		return Params{Variant: VariantOAuth2, Code: code, State: state}, nil
	case code != "" || state != "":
		return Params{}, &CallbackError{Reason: ReasonMissingOAuth2}
	default:
		return Params{}, &CallbackError{Reason: ReasonMissingOAuth1}
	}
}
