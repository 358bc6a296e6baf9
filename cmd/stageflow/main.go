package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "stageflow",
		Usage:                 "Operate the candidate stage transition engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewEvaluateCommand(),
			NewSeedCommand(),
			NewMigrateCommand(),
			NewValidateCommand(),
		},
	}
}

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
