package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/icco/mango/lib/config"
	"github.com/icco/mango/lib/db"
	"github.com/icco/mango/lib/lock"
	"github.com/icco/mango/lib/logging"
	"github.com/icco/mango/lib/seed"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "mango",
		Usage: "Browse movies and keep a watchlist",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
			inspectCommand(),
			initCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("Application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
		Sources: cli.EnvVars("MANGO_CONFIG"),
	}
}

// setup loads the configuration named by the command's --config flag and
// builds the logger it asks for.
func setup(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web server",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			conn := db.New(cfg.Database, logger)
			defer func() {
				if err := conn.Close(); err != nil {
					logger.Warn("Failed to close database", slog.Any("error", err))
				}
			}()

			app, err := NewApp(cfg, conn, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Serve(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			gormDB, err := db.Open(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.FromDB(gormDB).Close()

			if err := db.RunMigrations(ctx, gormDB, logger); err != nil {
				return err
			}
			logger.Info("Migrations complete", slog.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Insert sample movies into an empty catalog",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "lock-dir",
				Usage: "Directory for the lock file that serializes seeders",
				Value: lock.DefaultDir(),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			gormDB, err := db.Open(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.FromDB(gormDB).Close()

			if err := db.RunMigrations(ctx, gormDB, logger); err != nil {
				return err
			}

			seeder := seed.New(lock.NewFileLock(cmd.String("lock-dir"), logger), logger)
			n, err := seeder.SeedIfEmpty(ctx, gormDB)
			if err != nil {
				return err
			}
			logger.Info("Seed complete", slog.Int("inserted", n))
			return nil
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write an example configuration file",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			if err := config.CreateConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s\n", path)
			return nil
		},
	}
}
