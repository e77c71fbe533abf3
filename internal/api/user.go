package api

import (
	"context"
	"errors"
	"strings"

	"mace/internal/gateway"
)

type ProfileUpdate struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
	// ConfirmPassword is checked locally and never sent.
	ConfirmPassword string `json:"-"`
}

var ErrPasswordMismatch = errors.New("new passwords do not match")

func (p ProfileUpdate) Validate() error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Email) == "" {
		return errors.New("name and email are required")
	}
	if p.NewPassword != "" {
		if p.NewPassword != p.ConfirmPassword {
			return ErrPasswordMismatch
		}
		if p.CurrentPassword == "" {
			return errors.New("current password is required to set a new one")
		}
	}
	return nil
}

type Preferences struct {
	Timezone           string   `json:"timezone"`
	EmailNotifications bool     `json:"emailNotifications"`
	PushNotifications  bool     `json:"pushNotifications"`
	WeeklyReports      bool     `json:"weeklyReports"`
	DefaultPlatforms   []string `json:"defaultPlatforms"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Timezone:           "UTC",
		EmailNotifications: true,
		WeeklyReports:      true,
		DefaultPlatforms:   []string{"instagram", "twitter"},
	}
}

type UserService struct {
	gw *gateway.Client
}

func (s *UserService) UpdateProfile(ctx context.Context, p ProfileUpdate) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.gw.Put(ctx, "/user/profile", p, nil)
}

func (s *UserService) UpdatePreferences(ctx context.Context, p Preferences) error {
	if p.DefaultPlatforms == nil {
		p.DefaultPlatforms = []string{}
	}
	return s.gw.Put(ctx, "/user/preferences", p, nil)
}
