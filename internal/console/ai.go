package console

import (
	"strings"

	"github.com/urfave/cli/v2"

	"mace/internal/api"
)

func (c *Console) aiCommand() *cli.Command {
	return &cli.Command{
		Name:  "ai",
		Usage: "Generate captions and hashtags",
		Subcommands: []*cli.Command{
			{
				Name:  "caption",
				Usage: "Generate a caption from a description",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prompt"},
					&cli.StringFlag{Name: "tone", Value: "professional", Usage: "professional, casual, funny, inspirational or educational"},
					&cli.StringFlag{Name: "platform", Value: "instagram"},
				},
				Action: func(ctx *cli.Context) error {
					a, _, err := c.enter(ctx.Context, "/ai-tools")
					if err != nil {
						return err
					}
					prompt := ctx.String("prompt")
					if err := c.ask("What is your post about?", false, &prompt); err != nil {
						return err
					}
					caption, err := a.API.AI.GenerateCaption(ctx.Context, api.CaptionRequest{
						Prompt:   prompt,
						Tone:     ctx.String("tone"),
						Platform: ctx.String("platform"),
					})
					if err != nil {
						return err
					}
					c.println(caption)
					return nil
				},
			},
			{
				Name:  "hashtags",
				Usage: "Suggest hashtags for some content",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "content"},
					&cli.StringFlag{Name: "platform", Value: "instagram"},
					&cli.IntFlag{Name: "count", Value: 10},
				},
				Action: func(ctx *cli.Context) error {
					a, _, err := c.enter(ctx.Context, "/ai-tools")
					if err != nil {
						return err
					}
					content := ctx.String("content")
					if err := c.ask("Content", false, &content); err != nil {
						return err
					}
					tags, err := a.API.AI.GenerateHashtags(ctx.Context, api.HashtagRequest{
						Content:  content,
						Platform: ctx.String("platform"),
						Count:    ctx.Int("count"),
					})
					if err != nil {
						return err
					}
					c.println(strings.Join(tags, " "))
					return nil
				},
			},
		},
	}
}
