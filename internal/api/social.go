package api

import (
	"context"
	"errors"
	"net/url"

	"mace/internal/gateway"
	"mace/internal/oauthcb"
)

// Platforms the backend can publish to.
var Platforms = []string{"instagram", "twitter", "linkedin", "facebook", "tiktok"}

type SocialAccount struct {
	ID             string `json:"_id"`
	Platform       string `json:"platform"`
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	IsActive       bool   `json:"isActive"`
}

type SocialService struct {
	gw *gateway.Client
}

var _ oauthcb.Exchanger = (*SocialService)(nil)

func (s *SocialService) Accounts(ctx context.Context) ([]SocialAccount, error) {
	var resp struct {
		Accounts []SocialAccount `json:"accounts"`
	}
	if err := s.gw.Get(ctx, "/social/accounts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// Connected returns the active account for platform, if any.
func Connected(accounts []SocialAccount, platform string) (SocialAccount, bool) {
	for _, a := range accounts {
		if a.Platform == platform && a.IsActive {
			return a, true
		}
	}
	return SocialAccount{}, false
}

// TwitterAuthURL asks the backend to start the provider flow with redirectURI
// as the callback.
func (s *SocialService) TwitterAuthURL(ctx context.Context, redirectURI string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	q := url.Values{"redirect_uri": {redirectURI}}
	if err := s.gw.Get(ctx, "/social/connect/twitter", q, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", errors.New("backend returned no authorization URL")
	}
	return resp.URL, nil
}

// ExchangeTwitter forwards the redirect parameters for token exchange.
func (s *SocialService) ExchangeTwitter(ctx context.Context, p oauthcb.Params) error {
	return s.gw.Post(ctx, "/social/callback/twitter", p.Payload(), nil)
}
