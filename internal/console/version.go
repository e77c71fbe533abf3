package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Set at build time with -ldflags.
var (
	version = "dev"
	commit  = "000000000000"
)

func Version() string {
	return version
}

func FullVersion() string {
	return fmt.Sprintf("%s-%s", version, commit)
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build version & exit",
		Action: func(ctx *cli.Context) error {
			fmt.Fprintln(ctx.App.Writer, FullVersion())
			return nil
		},
	}
}
