package console

import (
	"time"

	"github.com/urfave/cli/v2"

	"mace/internal/logger"
	"mace/internal/session"
)

func (c *Console) loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to your account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}},
			&cli.StringFlag{Name: "password", EnvVars: []string{"MACE_PASSWORD"}},
		},
		Action: func(ctx *cli.Context) error {
			a, err := c.session(ctx.Context)
			if err != nil {
				return err
			}

			email, password := ctx.String("email"), ctx.String("password")
			if err := c.ask("Email Address", false, &email); err != nil {
				return err
			}
			if err := c.ask("Password", true, &password); err != nil {
				return err
			}

			id, err := a.Session.Login(ctx.Context, email, password)
			if err != nil {
				return err
			}
			c.println(styleSuccess.Render("Welcome back, " + id.Name + "!"))
			return nil
		},
	}
}

func (c *Console) registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}},
			&cli.StringFlag{Name: "password", EnvVars: []string{"MACE_PASSWORD"}},
		},
		Action: func(ctx *cli.Context) error {
			a, err := c.session(ctx.Context)
			if err != nil {
				return err
			}

			req := session.RegisterRequest{
				Name:     ctx.String("name"),
				Email:    ctx.String("email"),
				Password: ctx.String("password"),
			}
			if err := c.ask("Full Name", false, &req.Name); err != nil {
				return err
			}
			if err := c.ask("Email Address", false, &req.Email); err != nil {
				return err
			}
			if err := c.ask("Password (at least 8 characters)", true, &req.Password); err != nil {
				return err
			}

			res, err := a.Session.Register(ctx.Context, req)
			if err != nil {
				return err
			}
			if res.Authenticated {
				c.println(styleSuccess.Render("Account created. Welcome, " + res.Identity.Name + "!"))
				return nil
			}
			msg := res.Message
			if msg == "" {
				msg = "Account created. Sign in with `mace login`."
			}
			c.println(msg)
			return nil
		},
	}
}

func (c *Console) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and forget the stored session",
		Action: func(ctx *cli.Context) error {
			a, err := c.application(ctx.Context)
			if err != nil {
				return err
			}
			a.Session.Logout(ctx.Context)
			c.println("Signed out.")
			return nil
		},
	}
}

func (c *Console) statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current session",
		Action: func(ctx *cli.Context) error {
			a, err := c.session(ctx.Context)
			if err != nil {
				return err
			}
			snap := a.Session.Snapshot()

			tw := newTable(c.Stdout, "FIELD", "VALUE")
			row(tw, "Backend", a.Gateway.BaseURL())
			row(tw, "Profile", a.Config().Profile)
			row(tw, "Session", snap.State.String())
			if snap.Authenticated() {
				row(tw, "User", snap.Identity.Name+" <"+snap.Identity.Email+">")
				row(tw, "Role", string(snap.Identity.Role))
				row(tw, "Plan", orDash(snap.Identity.Plan))
				if token, _, ok := a.Session.Credentials(); ok {
					row(tw, "Token", logger.Secret(token))
					row(tw, "Expires", tokenExpiry(token, time.Now()))
				}
			}
			return tw.Flush()
		},
	}
}

func tokenExpiry(token string, now time.Time) string {
	info, err := session.InspectToken(token)
	if err != nil {
		return "unknown (opaque token)"
	}
	if info.ExpiresAt.IsZero() {
		return "never"
	}
	if info.Expired(now) {
		return "expired " + localTime(info.ExpiresAt)
	}
	return localTime(info.ExpiresAt) + " (in " + info.ExpiresAt.Sub(now).Round(time.Minute).String() + ")"
}
