package console

import (
	"fmt"
	"slices"

	"github.com/urfave/cli/v2"

	"mace/internal/api"
)

var (
	logTypes    = []string{"all", "post", "automation", "auth", "social_connect", "ai", "error", "system"}
	logStatuses = []string{"all", "success", "failure", "warning", "info"}
)

func (c *Console) adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Administrator tools",
		Subcommands: []*cli.Command{
			{
				Name:  "logs",
				Usage: "Browse the activity log",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: "all"},
					&cli.StringFlag{Name: "status", Value: "all"},
					&cli.StringFlag{Name: "user", Usage: "filter by user id"},
				},
				Action: func(ctx *cli.Context) error {
					filter := api.LogFilter{
						Type:   ctx.String("type"),
						Status: ctx.String("status"),
						UserID: ctx.String("user"),
					}
					if !slices.Contains(logTypes, filter.Type) {
						return fmt.Errorf("unknown log type %q", filter.Type)
					}
					if !slices.Contains(logStatuses, filter.Status) {
						return fmt.Errorf("unknown log status %q", filter.Status)
					}

					a, _, err := c.enter(ctx.Context, "/admin/logs")
					if err != nil {
						return err
					}
					logs, err := a.API.Admin.Logs(ctx.Context, filter)
					if err != nil {
						return err
					}
					if len(logs) == 0 {
						c.println(styleMuted.Render("No logs found"))
						return nil
					}

					tw := newTable(c.Stdout, "TIME", "TYPE", "ACTION", "STATUS", "USER", "PLATFORM", "ERROR")
					for _, l := range logs {
						row(tw,
							localTime(l.CreatedAt),
							l.Type,
							l.Action,
							l.Status,
							orDash(l.User.String()),
							orDash(l.Platform),
							truncate(orDash(l.ErrorMessage), 40),
						)
					}
					return tw.Flush()
				},
			},
		},
	}
}
