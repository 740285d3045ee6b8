// Package seed fills an empty catalog with sample movies.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/icco/mango/lib/lock"
	"github.com/icco/mango/lib/validation"
	"github.com/icco/mango/models"
	"gorm.io/gorm"
)

const lockKey = "seed"

// LockTimeout bounds how long SeedIfEmpty waits for another seeder.
var LockTimeout = 30 * time.Second

func poster(photo string) string {
	return "https://images.unsplash.com/" + photo + "?auto=format&fit=crop&w=800&q=80"
}

// Samples are the movies inserted into an empty catalog. Six are popular.
var Samples = []models.Movie{
	{ID: 1, Title: "Mango Nights", PosterURL: poster("photo-1524985069026-dd778a71c7b4"), ReleaseDate: "2022-06-18", AvgRating: 8.6, IsPopular: true},
	{ID: 2, Title: "Neon Boulevard", PosterURL: poster("photo-1489599849927-2ee91cede3ba"), ReleaseDate: "2023-02-10", AvgRating: 7.9, IsPopular: true},
	{ID: 3, Title: "The Last Signal", PosterURL: poster("photo-1524985069026-dd778a71c7b4"), ReleaseDate: "2021-11-04", AvgRating: 7.2},
	{ID: 4, Title: "Midnight Cinema Club", PosterURL: poster("photo-1478720568477-152d9b164e26"), ReleaseDate: "2020-09-12", AvgRating: 6.8},
	{ID: 5, Title: "Orbit Runner", PosterURL: poster("photo-1536440136628-849c177e76a1"), ReleaseDate: "2024-04-21", AvgRating: 8.1, IsPopular: true},
	{ID: 6, Title: "Laugh Track", PosterURL: poster("photo-1460881680858-30d872d5b530"), ReleaseDate: "2019-01-19", AvgRating: 6.4},
	{ID: 7, Title: "Sunset Heist", PosterURL: poster("photo-1489599849927-2ee91cede3ba"), ReleaseDate: "2022-10-03", AvgRating: 7.7, IsPopular: true},
	{ID: 8, Title: "Paper Planets", PosterURL: poster("photo-1478720568477-152d9b164e26"), ReleaseDate: "2018-05-26", AvgRating: 6.1},
	{ID: 9, Title: "Afterglow", PosterURL: poster("photo-1536440136628-849c177e76a1"), ReleaseDate: "2023-08-14", AvgRating: 8.0, IsPopular: true},
	{ID: 10, Title: "Quiet Hours", PosterURL: poster("photo-1460881680858-30d872d5b530"), ReleaseDate: "2017-12-08", AvgRating: 6.9},
	{ID: 11, Title: "Golden Frame", PosterURL: poster("photo-1524985069026-dd778a71c7b4"), ReleaseDate: "2020-03-30", AvgRating: 8.9, IsPopular: true},
	{ID: 12, Title: "Streetlight Stories", PosterURL: poster("photo-1489599849927-2ee91cede3ba"), ReleaseDate: "2021-07-07", AvgRating: 7.1},
}

// Seeder inserts Samples into an empty Movies table.
type Seeder struct {
	lock   *lock.FileLock
	logger *slog.Logger
}

// New returns a Seeder. A nil lock means callers are already serialized.
func New(fl *lock.FileLock, logger *slog.Logger) *Seeder {
	return &Seeder{lock: fl, logger: logger}
}

// SeedIfEmpty inserts Samples when Movies has no rows and reports how many
// rows it inserted. A non-empty catalog is left alone.
func (s *Seeder) SeedIfEmpty(ctx context.Context, db *gorm.DB) (int, error) {
	for _, m := range Samples {
		if err := validation.Struct(m); err != nil {
			return 0, fmt.Errorf("invalid sample movie %d: %w", m.ID, err)
		}
	}

	if s.lock != nil {
		if err := s.lock.Acquire(ctx, lockKey, LockTimeout); err != nil {
			return 0, fmt.Errorf("failed to acquire seed lock: %w", err)
		}
		defer func() {
			if err := s.lock.Unlock(ctx, lockKey); err != nil {
				s.logger.WarnContext(ctx, "Failed to release seed lock", slog.Any("error", err))
			}
		}()
	}

	inserted := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Movie{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count movies: %w", err)
		}
		if count > 0 {
			s.logger.InfoContext(ctx, "Catalog already has movies, skipping seed", slog.Int64("count", count))
			return nil
		}

		rows := make([]models.Movie, len(Samples))
		copy(rows, Samples)
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert sample movies: %w", err)
		}
		inserted = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		s.logger.InfoContext(ctx, "Seeded sample movies", slog.Int("count", inserted))
	}
	return inserted, nil
}
