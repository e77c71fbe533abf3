package console

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"mace/internal/api"
)

var whenLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

// parseWhen accepts RFC 3339 or a zone-less local date and time.
func parseWhen(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range whenLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q: use YYYY-MM-DD HH:MM or RFC 3339", raw)
}

func (c *Console) postsCommand() *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "Create and manage scheduled posts",
		Subcommands: []*cli.Command{
			c.scheduleCommand(),
			c.listPostsCommand(),
			c.deletePostCommand(),
		},
	}
}

func (c *Console) scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Schedule a new post",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "caption", Aliases: []string{"c"}},
			&cli.StringFlag{Name: "hashtags", Usage: "space separated, e.g. \"#launch #product\""},
			&cli.StringSliceFlag{Name: "platform", Usage: "repeat for each platform: " + strings.Join(api.Platforms, ", ")},
			&cli.StringFlag{Name: "at", Usage: "when to publish, local time YYYY-MM-DD HH:MM or RFC 3339"},
		},
		Action: func(ctx *cli.Context) error {
			a, _, err := c.enter(ctx.Context, "/create")
			if err != nil {
				return err
			}

			caption, at := ctx.String("caption"), ctx.String("at")
			platforms := ctx.StringSlice("platform")
			if err := c.ask("Caption", false, &caption); err != nil {
				return err
			}
			if len(platforms) == 0 {
				if err := c.Prompt.MultiSelect("Platforms", api.Platforms, &platforms); err != nil {
					return err
				}
			}
			for _, p := range platforms {
				if !slices.Contains(api.Platforms, p) {
					return fmt.Errorf("unknown platform %q", p)
				}
			}
			if err := c.ask("Schedule for (YYYY-MM-DD HH:MM)", false, &at); err != nil {
				return err
			}
			when, err := parseWhen(at, time.Local)
			if err != nil {
				return err
			}

			post, err := a.API.Posts.Schedule(ctx.Context, api.ScheduleRequest{
				Caption:       caption,
				Hashtags:      api.SplitHashtags(ctx.String("hashtags")),
				Platforms:     platforms,
				ScheduledTime: when,
			})
			if err != nil {
				return err
			}

			msg := "Post scheduled for " + localTime(when)
			if post != nil && post.ID != "" {
				msg += " (" + post.ID + ")"
			}
			c.println(styleSuccess.Render(msg))
			return nil
		},
	}
}

func (c *Console) listPostsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List scheduled posts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Value: "all", Usage: "all, pending, published or failed"},
			&cli.IntFlag{Name: "limit", Value: 50},
		},
		Action: func(ctx *cli.Context) error {
			a, _, err := c.enter(ctx.Context, "/scheduled")
			if err != nil {
				return err
			}

			status := api.PostStatus(strings.ToLower(ctx.String("status")))
			switch status {
			case "all", api.PostPending, api.PostPublished, api.PostFailed:
			default:
				return fmt.Errorf("unknown status %q", status)
			}

			list, err := a.API.Posts.ListScheduled(ctx.Context, api.ListOptions{Status: status, Limit: ctx.Int("limit")})
			if err != nil {
				return err
			}
			if len(list.Posts) == 0 {
				c.println(styleMuted.Render("No posts found."))
				return nil
			}

			tw := newTable(c.Stdout, "ID", "SCHEDULED", "STATUS", "PLATFORMS", "CAPTION")
			for _, p := range list.Posts {
				row(tw, p.ID, localTime(p.ScheduledTime), string(p.Status), strings.Join(p.Platforms, ","), truncate(p.Caption, 40))
				for _, r := range p.PublishResults {
					if !r.Success {
						row(tw, "", "", "", r.Platform, styleError.Render(truncate(r.Error, 40)))
					}
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			c.println(styleMuted.Render(fmt.Sprintf("%d of %d posts", len(list.Posts), list.Total())))
			return nil
		},
	}
}

func (c *Console) deletePostCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a scheduled post",
		ArgsUsage: "POST_ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip confirmation"},
		},
		Action: func(ctx *cli.Context) error {
			id := ctx.Args().First()
			if id == "" {
				return errors.New("post id is required")
			}
			a, _, err := c.enter(ctx.Context, "/scheduled")
			if err != nil {
				return err
			}

			confirmed := ctx.Bool("yes")
			if !confirmed {
				if err := c.Prompt.Confirm("Are you sure you want to delete this post?", &confirmed); err != nil {
					return err
				}
			}
			if !confirmed {
				c.println("Cancelled.")
				return nil
			}

			if err := a.API.Posts.Delete(ctx.Context, id); err != nil {
				return err
			}
			c.println(styleSuccess.Render("Post deleted."))
			return nil
		},
	}
}
