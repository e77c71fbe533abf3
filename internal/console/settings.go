package console

import (
	"github.com/urfave/cli/v2"

	"mace/internal/api"
)

func (c *Console) settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Update your profile and preferences",
		Subcommands: []*cli.Command{
			c.profileCommand(),
			c.preferencesCommand(),
		},
	}
}

func (c *Console) profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Change name, email or password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "email"},
			&cli.BoolFlag{Name: "change-password", Usage: "prompt for a new password"},
		},
		Action: func(ctx *cli.Context) error {
			a, id, err := c.enter(ctx.Context, "/settings")
			if err != nil {
				return err
			}

			update := api.ProfileUpdate{Name: id.Name, Email: id.Email}
			if ctx.IsSet("name") {
				update.Name = ctx.String("name")
			}
			if ctx.IsSet("email") {
				update.Email = ctx.String("email")
			}
			if ctx.Bool("change-password") {
				if err := c.ask("Current Password", true, &update.CurrentPassword); err != nil {
					return err
				}
				if err := c.ask("New Password", true, &update.NewPassword); err != nil {
					return err
				}
				if err := c.ask("Confirm New Password", true, &update.ConfirmPassword); err != nil {
					return err
				}
			}

			if err := a.API.User.UpdateProfile(ctx.Context, update); err != nil {
				return err
			}
			c.println(styleSuccess.Render("Profile updated successfully!"))
			return nil
		},
	}
}

func (c *Console) preferencesCommand() *cli.Command {
	defaults := api.DefaultPreferences()
	return &cli.Command{
		Name:  "preferences",
		Usage: "Change timezone, notifications and default platforms",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "timezone", Value: defaults.Timezone},
			&cli.BoolFlag{Name: "email-notifications", Value: defaults.EmailNotifications},
			&cli.BoolFlag{Name: "push-notifications", Value: defaults.PushNotifications},
			&cli.BoolFlag{Name: "weekly-reports", Value: defaults.WeeklyReports},
			&cli.StringSliceFlag{Name: "default-platform", Value: cli.NewStringSlice(defaults.DefaultPlatforms...)},
		},
		Action: func(ctx *cli.Context) error {
			a, _, err := c.enter(ctx.Context, "/settings")
			if err != nil {
				return err
			}
			prefs := api.Preferences{
				Timezone:           ctx.String("timezone"),
				EmailNotifications: ctx.Bool("email-notifications"),
				PushNotifications:  ctx.Bool("push-notifications"),
				WeeklyReports:      ctx.Bool("weekly-reports"),
				DefaultPlatforms:   ctx.StringSlice("default-platform"),
			}
			if err := a.API.User.UpdatePreferences(ctx.Context, prefs); err != nil {
				return err
			}
			c.println(styleSuccess.Render("Preferences saved!"))
			return nil
		},
	}
}
