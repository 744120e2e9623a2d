package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"ddtft/internal/config"
	"ddtft/internal/observability"
)

const (
	migrationsSource = "file://db/migrations"
	usage            = "usage: ddtft-migrate up | down | steps N | force V | version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ddtft-migrate: %v\n", err)
		os.Exit(1)
	}
}

// action is one schema operation against an open migrator.
type action func(m *migrate.Migrate, log zerolog.Logger) error

func run(args []string) error {
	act, err := parseAction(args)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      os.Stdout,
		ServiceName: "ddtft-migrate",
	})

	m, err := migrate.New(migrationsSource, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	defer m.Close()

	return act(m, log)
}

// parseAction resolves the command line before any connection is opened.
func parseAction(args []string) (action, error) {
	if len(args) == 0 {
		return nil, errors.New(usage)
	}
	switch args[0] {
	case "up":
		return func(m *migrate.Migrate, log zerolog.Logger) error {
			return report(log, "up", ignoreNoChange(m.Up()))
		}, nil
	case "down":
		return func(m *migrate.Migrate, log zerolog.Logger) error {
			return report(log, "down", ignoreNoChange(m.Down()))
		}, nil
	case "steps":
		n, err := intArg(args, "steps")
		if err != nil {
			return nil, err
		}
		return func(m *migrate.Migrate, log zerolog.Logger) error {
			return report(log, "steps "+strconv.Itoa(n), ignoreNoChange(m.Steps(n)))
		}, nil
	case "force":
		v, err := intArg(args, "force")
		if err != nil {
			return nil, err
		}
		return func(m *migrate.Migrate, log zerolog.Logger) error {
			return report(log, "force "+strconv.Itoa(v), m.Force(v))
		}, nil
	case "version":
		return func(m *migrate.Migrate, log zerolog.Logger) error {
			v, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Info().Msg("no migration applied")
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading version: %w", err)
			}
			log.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func intArg(args []string, name string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a number\n%s", name, usage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", name, args[1])
	}
	return n, nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func report(log zerolog.Logger, op string, err error) error {
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	log.Info().Str("op", op).Msg("migrations applied")
	return nil
}
