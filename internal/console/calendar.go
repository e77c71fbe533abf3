package console

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"mace/internal/api"
)

type calendarDay struct {
	Date  time.Time
	Posts []api.Post
}

// groupByDay buckets posts by local calendar day within month. Days are
// returned in order, posts within a day by scheduled time.
func groupByDay(posts []api.Post, month time.Time, loc *time.Location) []calendarDay {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)

	byDay := map[int][]api.Post{}
	for _, p := range posts {
		t := p.ScheduledTime.In(loc)
		if t.Before(first) || !t.Before(next) {
			continue
		}
		byDay[t.Day()] = append(byDay[t.Day()], p)
	}

	days := make([]calendarDay, 0, len(byDay))
	for d, ps := range byDay {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].ScheduledTime.Before(ps[j].ScheduledTime) })
		days = append(days, calendarDay{Date: first.AddDate(0, 0, d-1), Posts: ps})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days
}

func (c *Console) calendarCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendar",
		Usage: "Show scheduled posts for a month, grouped by day",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Usage: "YYYY-MM, defaults to the current month"},
		},
		Action: func(ctx *cli.Context) error {
			month := time.Now()
			if raw := ctx.String("month"); raw != "" {
				m, err := time.ParseInLocation("2006-01", raw, time.Local)
				if err != nil {
					return fmt.Errorf("invalid month %q: use YYYY-MM", raw)
				}
				month = m
			}

			a, _, err := c.enter(ctx.Context, "/calendar")
			if err != nil {
				return err
			}
			list, err := a.API.Posts.ListScheduled(ctx.Context, api.ListOptions{Limit: 100})
			if err != nil {
				return err
			}

			c.println(styleTitle.Render(month.Format("January 2006")))
			days := groupByDay(list.Posts, month, time.Local)
			if len(days) == 0 {
				c.println(styleMuted.Render("No posts this month."))
				return nil
			}
			for _, d := range days {
				c.println(styleTitle.Render(d.Date.Format("Mon Jan 2")))
				for _, p := range d.Posts {
					c.printf("  %s  %-9s  %-20s  %s\n",
						p.ScheduledTime.In(time.Local).Format("15:04"),
						p.Status,
						strings.Join(p.Platforms, ","),
						truncate(p.Caption, 40))
				}
			}
			return nil
		},
	}
}
