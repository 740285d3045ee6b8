package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icco/mango/lib/catalog"
	"github.com/icco/mango/lib/db"
	"github.com/icco/mango/lib/types"
	"github.com/icco/mango/models"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Log an overview of the catalog and watchlist",
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

			return inspect(ctx, gormDB, logger)
		},
	}
}

// inspect logs catalog counts, the genre split, the current popular list and
// a one-line diagnosis.
func inspect(ctx context.Context, gormDB *gorm.DB, logger *slog.Logger) error {
	logger.Info("=== CATALOG OVERVIEW ===")

	stats, err := types.CollectStats(ctx, gormDB)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	logger.Info("Catalog",
		slog.Int64("movies", stats.TotalMovies),
		slog.Int64("popular", stats.PopularMovies),
		slog.Float64("average_rating", stats.AverageRating))
	logger.Info("Watchlist",
		slog.Int64("entries", stats.WatchlistEntries),
		slog.Int64("users", stats.Users))

	logger.Info("=== GENRES ===")
	for _, g := range stats.GenreDistribution {
		logger.Info("Genre", slog.String("genre", string(g.Genre)), slog.Int64("count", g.Count))
	}

	logger.Info("=== POPULAR ===")
	res, err := catalog.New(gormDB).Find(ctx, catalog.Params{View: catalog.ViewBrowse, PopularOnly: true}, models.NewIDSet())
	if err != nil {
		return fmt.Errorf("failed to list popular movies: %w", err)
	}
	for _, card := range catalog.ResolveAll(res.Movies, nil) {
		logger.Info("Movie",
			slog.Uint64("id", uint64(card.ID)),
			slog.String("title", card.Title),
			slog.String("year", card.Year),
			slog.Float64("rating", card.AvgRating),
			slog.String("genre", string(card.Genre)))
	}

	logger.Info("=== DIAGNOSIS ===")
	switch {
	case stats.Empty():
		logger.Warn("Catalog is empty; run `mango seed` or open /seed")
	case stats.Users == 0:
		logger.Info("Catalog is populated; the demo user is created on the first page view or watchlist change")
	default:
		logger.Info("Catalog and watchlist look healthy")
	}

	return nil
}
