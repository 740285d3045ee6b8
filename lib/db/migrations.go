package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icco/mango/models"
	"gorm.io/gorm"
)

// RunMigrations creates or updates the Movies, User and Watchlist tables and
// their indexes.
func RunMigrations(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	if db.Dialector.Name() == "sqlite" {
		enableSQLiteOptimizations(ctx, db, logger)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.Movie{}, &models.User{}, &models.WatchlistEntry{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, idx := range []struct {
		model any
		name  string
	}{
		{&models.Movie{}, "idx_movies_catalog_order"},
		{&models.WatchlistEntry{}, "idx_watchlist_user"},
	} {
		migrator := db.WithContext(ctx).Migrator()
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := migrator.CreateIndex(idx.model, idx.name); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		logger.DebugContext(ctx, "Created index", slog.String("index", idx.name))
	}

	return nil
}

// enableSQLiteOptimizations applies connection pragmas. Failures are logged
// and ignored; in-memory databases reject some of them.
func enableSQLiteOptimizations(ctx context.Context, db *gorm.DB, logger *slog.Logger) {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.WarnContext(ctx, "Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
			continue
		}
		logger.DebugContext(ctx, "Executed pragma", slog.String("pragma", pragma))
	}
}
