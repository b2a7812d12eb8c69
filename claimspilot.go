package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/claimspilot/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "claimspilot",
		Usage:   "Autonomous claims agent for public adjusting firms",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "claimspilot.toml",
			},
		},
		Commands: []*cli.Command{
			cmd.ServeCommand(),
			cmd.RunCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
