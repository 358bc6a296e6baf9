package main

import (
	"context"
	"os"

	"github.com/hirezen/stageflow/pkg/cmd"
	"github.com/hirezen/stageflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
	}
	flags = append(flags, cmd.RuntimeFlags()...)
	flags = append(flags, cmd.LogFlags()...)

	command := &cli.Command{
		Name:                  "stageflow-api",
		Usage:                 "Serve the candidate stage transition API",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.SetupWithFormat(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing stageflow API")

			runtime, err := cmd.NewRuntime(ctx, logger, command, "stageflow-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := runtime.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				runtime.Store,
				runtime.Engine.Orchestrator,
				runtime.Stages,
				runtime.Registry,
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return err
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
