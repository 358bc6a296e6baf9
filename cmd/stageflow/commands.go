package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hirezen/stageflow/pkg/cmd"
	"github.com/hirezen/stageflow/pkg/config"
	"github.com/hirezen/stageflow/pkg/log"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence/postgresql"
	"github.com/hirezen/stageflow/pkg/transitions"
	cli "github.com/urfave/cli/v3"
)

var ErrPostgresOnly = errors.New("migrate requires a postgres:// database url")

func NewEvaluateCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "candidate-id",
			Usage: "Evaluate every rule leaving the candidate's current stage",
		},
		&cli.StringFlag{
			Name:  "rule-id",
			Usage: "Evaluate one rule against every candidate in its source stage",
		},
		&cli.StringFlag{
			Name:  "from-stage",
			Usage: "Evaluate every enabled rule leaving the stage",
		},
		&cli.StringFlag{
			Name:  "trigger-type",
			Usage: "Trigger recorded with executions (event, scheduled, manual)",
			Value: string(models.TriggerTypeManual),
		},
	}
	flags = append(flags, cmd.RuntimeFlags()...)
	flags = append(flags, cmd.LogFlags()...)

	return &cli.Command{
		Name:    "evaluate",
		Aliases: []string{"e"},
		Usage:   "Run one transition evaluation and print the result as JSON",
		Description: "With a memory:// database the --pipeline-file rules and candidates are " +
			"loaded first, which gives a dry run of a pipeline file.",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.SetupWithFormat(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("stageflow-cli")

			runtime, err := cmd.NewRuntime(ctx, logger, command, "stageflow-cli")
			if err != nil {
				return err
			}

			defer func() {
				if err := runtime.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			if path := command.String("pipeline-file"); path != "" && strings.HasPrefix(command.String("database-url"), "memory://") {
				pipeline, err := config.LoadPipeline(path)
				if err != nil {
					return err
				}

				err = config.Apply(ctx, runtime.Store, pipeline)
				if err != nil {
					return err
				}
			}

			result, err := runtime.Engine.Orchestrator.Evaluate(ctx, transitions.Request{
				CandidateID: command.String("candidate-id"),
				RuleID:      command.String("rule-id"),
				FromStage:   command.String("from-stage"),
				TriggerType: models.TriggerType(command.String("trigger-type")),
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(command.Root().Writer)
			encoder.SetIndent("", "  ")

			return encoder.Encode(result)
		},
	}
}

func NewSeedCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:     "file",
			Aliases:  []string{"f"},
			Usage:    "Pipeline YAML file with rules and candidates",
			Required: true,
			Sources:  cli.EnvVars("PIPELINE_FILE"),
		},
	}
	flags = append(flags, cmd.LogFlags()...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Load rules and candidates from a pipeline file into the store",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.SetupWithFormat(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("stageflow-cli")

			pipeline, err := config.LoadPipeline(command.String("file"))
			if err != nil {
				return err
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			err = config.Apply(ctx, store, pipeline)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(command.Root().Writer, "seeded %d rules and %d candidates\n",
				len(pipeline.Rules), len(pipeline.Candidates))

			return err
		},
	}
}

func NewMigrateCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "PostgreSQL connection URL",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
	}
	flags = append(flags, cmd.LogFlags()...)

	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.SetupWithFormat(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("stageflow-cli")

			databaseURL := command.String("database-url")
			if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
				return ErrPostgresOnly
			}

			db, err := sql.Open("postgres", databaseURL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}

			defer func() {
				if err := db.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close database", "error", err)
				}
			}()

			manager := postgresql.NewMigrationManager(logger, db)

			err = manager.RunMigrations(ctx)
			if err != nil {
				return err
			}

			version, err := manager.CurrentVersion(ctx)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(command.Root().Writer, "schema at version %d\n", version)

			return err
		},
	}
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a pipeline file without touching any store",
		ArgsUsage: "<pipeline-file>",
		Action: func(_ context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return errors.New("a pipeline file is required")
			}

			pipeline, err := config.LoadPipeline(path)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(command.Root().Writer, "%s: %d stages, %d rules, %d candidates\n",
				path, len(pipeline.Catalog().Stages), len(pipeline.Rules), len(pipeline.Candidates))

			return err
		},
	}
}
