package console

import (
	"context"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"mace/internal/api"
)

type dashboardData struct {
	Recent   *api.PostList
	Accounts []api.SocialAccount
}

// loadDashboard fetches the recent posts and the connected accounts
// concurrently.
func loadDashboard(ctx context.Context, client *api.Client) (dashboardData, error) {
	var data dashboardData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := client.Posts.ListScheduled(gctx, api.ListOptions{Limit: 5})
		data.Recent = list
		return err
	})
	g.Go(func() error {
		accounts, err := client.Social.Accounts(gctx)
		data.Accounts = accounts
		return err
	})
	return data, g.Wait()
}

func (c *Console) dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:    "dashboard",
		Aliases: []string{"home"},
		Usage:   "Show recent posts and connected accounts",
		Action: func(ctx *cli.Context) error {
			a, id, err := c.enter(ctx.Context, "/dashboard")
			if err != nil {
				return err
			}

			data, err := loadDashboard(ctx.Context, a.API)
			if err != nil {
				return err
			}

			c.println(styleTitle.Render("Welcome back, " + id.Name + "!"))
			c.printf("Plan: %s   Scheduled posts: %d   Connected accounts: %d\n\n",
				orDash(id.Plan), data.Recent.Total(), activeCount(data.Accounts))

			c.println(styleTitle.Render("Recent Posts"))
			if len(data.Recent.Posts) == 0 {
				c.println(styleMuted.Render("No posts scheduled yet. Create one with `mace posts schedule`."))
			} else {
				tw := newTable(c.Stdout, "SCHEDULED", "STATUS", "PLATFORMS", "CAPTION")
				for _, p := range data.Recent.Posts {
					row(tw, localTime(p.ScheduledTime), string(p.Status), strings.Join(p.Platforms, ","), truncate(p.Caption, 48))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			c.println()
			c.println(styleTitle.Render("Connected Accounts"))
			if activeCount(data.Accounts) == 0 {
				c.println(styleMuted.Render("No accounts connected. Run `mace connect twitter`."))
				return nil
			}
			tw := newTable(c.Stdout, "PLATFORM", "ACCOUNT")
			for _, acct := range data.Accounts {
				if acct.IsActive {
					row(tw, acct.Platform, "@"+acct.Username)
				}
			}
			return tw.Flush()
		},
	}
}

func activeCount(accounts []api.SocialAccount) int {
	n := 0
	for _, a := range accounts {
		if a.IsActive {
			n++
		}
	}
	return n
}
