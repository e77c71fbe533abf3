package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"mace/internal/api"
	"mace/internal/oauthcb"
)

func (c *Console) accountsCommand() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "List connected social accounts",
		Action: func(ctx *cli.Context) error {
			a, _, err := c.enter(ctx.Context, "/connect")
			if err != nil {
				return err
			}
			return c.showAccounts(ctx.Context, a.API)
		},
	}
}

func (c *Console) showAccounts(ctx context.Context, client *api.Client) error {
	accounts, err := client.Social.Accounts(ctx)
	if err != nil {
		return err
	}
	tw := newTable(c.Stdout, "PLATFORM", "STATUS", "ACCOUNT")
	for _, p := range api.Platforms {
		acct, ok := api.Connected(accounts, p)
		if ok {
			row(tw, p, styleSuccess.Render("connected"), acct.DisplayName+" (@"+acct.Username+")")
		} else {
			row(tw, p, styleMuted.Render("not connected"), "-")
		}
	}
	return tw.Flush()
}

func (c *Console) connectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Connect a social account",
		Subcommands: []*cli.Command{
			{
				Name:  "twitter",
				Usage: "Authorize mace to post to your Twitter account",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Value: 5 * time.Minute, Usage: "how long to wait for the browser"},
				},
				Action: c.connectTwitter,
			},
		},
	}
}

func (c *Console) connectTwitter(ctx *cli.Context) error {
	a, _, err := c.enter(ctx.Context, "/connect")
	if err != nil {
		return err
	}

	srv := a.CallbackServer()
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	authURL, err := a.API.Social.TwitterAuthURL(ctx.Context, srv.CallbackURL())
	if err != nil {
		return err
	}
	c.println("Open this link in your browser to authorize mace:")
	c.println()
	c.println("  " + authURL)
	c.println()
	c.println(styleMuted.Render("Connecting your Twitter account..."))

	wctx, cancel := context.WithTimeout(ctx.Context, ctx.Duration("timeout"))
	defer cancel()

	var res oauthcb.Result
	select {
	case res = <-srv.Done():
	case <-wctx.Done():
		return errors.New("timed out waiting for the authorization redirect")
	}

	if res.Status != oauthcb.StatusSucceeded {
		return fmt.Errorf("connection failed: %s", res.Reason)
	}
	c.println(styleSuccess.Render("Success! Your Twitter account has been connected."))

	// the handler moves to the connect screen after its redirect delay
	if err := c.nav.Wait(wctx, oauthcb.PathConnect); err != nil {
		return nil
	}
	c.println()
	return c.showAccounts(ctx.Context, a.API)
}
