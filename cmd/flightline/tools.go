package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/flightline/pkg/cmd"
	"github.com/dukex/flightline/pkg/fleet"
	"github.com/dukex/flightline/pkg/log"
	"github.com/dukex/flightline/pkg/persistence/postgresql"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/urfave/cli/v3"
)

var errPersonnelNeedsPostgres = errors.New("personnel import needs a postgres:// database URL")

func databaseFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func logLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func logFormatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-format",
		Usage:   "Log format (text, json)",
		Value:   "text",
		Sources: cli.EnvVars("LOG_FORMAT"),
	}
}

func costFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "cost",
		Usage:   "bcrypt cost",
		Value:   10,
		Sources: cli.EnvVars("PIN_COST"),
	}
}

func HashPINCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-pin",
		Usage:     "Print the bcrypt hash of a PIN for a personnel file pin_hash field",
		ArgsUsage: "<pin>",
		Flags:     []cli.Flag{costFlag()},
		Action: func(_ context.Context, command *cli.Command) error {
			hash, err := personnel.HashPIN(command.Args().First(), command.Int("cost"))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(command.Root().Writer, hash)

			return err
		},
	}
}

func ValidatePersonnelCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate-personnel",
		Usage:     "Check a personnel file against the directory schema",
		ArgsUsage: "<file>",
		Action: func(_ context.Context, command *cli.Command) error {
			path := command.Args().First()

			data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
			if err != nil {
				return fmt.Errorf("failed to read personnel file %s: %w", path, err)
			}

			if err := personnel.ValidateDocument(data); err != nil {
				return err
			}

			_, err = fmt.Fprintf(command.Root().Writer, "%s is valid\n", path)

			return err
		},
	}
}

func ImportPersonnelCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-personnel",
		Usage:     "Load a personnel file into the personnel table",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{databaseFlag(), costFlag(), logLevelFlag(), logFormatFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))
			logger := log.WithModule("import")

			directory, err := personnel.LoadFile(logger, command.Args().First(), command.Int("cost"))
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

			pg, ok := store.(*postgresql.Persistence)
			if !ok {
				return errPersonnelNeedsPostgres
			}

			return pg.Directory().Import(ctx, directory.Entries())
		},
	}
}

func ImportAircraftCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-aircraft",
		Usage:     "Load fleet entries from a JSON file",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{databaseFlag(), logLevelFlag(), logFormatFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))
			logger := log.WithModule("import")

			aircraft, err := fleet.LoadFile(command.Args().First())
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

			if err := fleet.Seed(ctx, store.AircraftRepository(), aircraft); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Aircraft imported", "count", len(aircraft))

			return nil
		},
	}
}
