// Package api holds the typed backend endpoints used by the console.
package api

import (
	"mace/internal/gateway"
)

// Client groups the endpoint families over one gateway.
type Client struct {
	gw *gateway.Client

	Auth   *AuthService
	Posts  *PostService
	Social *SocialService
	AI     *AIService
	User   *UserService
	Admin  *AdminService
}

func New(gw *gateway.Client) *Client {
	return &Client{
		gw:     gw,
		Auth:   &AuthService{gw: gw},
		Posts:  &PostService{gw: gw},
		Social: &SocialService{gw: gw},
		AI:     &AIService{gw: gw},
		User:   &UserService{gw: gw},
		Admin:  &AdminService{gw: gw},
	}
}

func (c *Client) Gateway() *gateway.Client { return c.gw }
