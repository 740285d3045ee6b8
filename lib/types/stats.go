package types

import (
	"context"
	"fmt"

	"github.com/icco/mango/lib/catalog"
	"github.com/icco/mango/models"
	"gorm.io/gorm"
)

// GenreCount is one row of a genre distribution.
type GenreCount struct {
	Genre catalog.Label
	Count int64
}

// CatalogStats summarizes the catalog and the demo user's watchlist.
type CatalogStats struct {
	TotalMovies       int64
	PopularMovies     int64
	WatchlistEntries  int64
	Users             int64
	AverageRating     float64
	GenreDistribution []GenreCount
}

// Empty reports whether the catalog has no movies.
func (s CatalogStats) Empty() bool {
	return s.TotalMovies == 0
}

// CollectStats reads CatalogStats from db. Genres are derived per row, in
// the order of catalog.Labels.
func CollectStats(ctx context.Context, db *gorm.DB) (CatalogStats, error) {
	var stats CatalogStats
	tx := db.WithContext(ctx)

	if err := tx.Model(&models.Movie{}).Count(&stats.TotalMovies).Error; err != nil {
		return stats, fmt.Errorf("failed to count movies: %w", err)
	}
	if err := tx.Model(&models.Movie{}).Where("is_popular = ?", true).Count(&stats.PopularMovies).Error; err != nil {
		return stats, fmt.Errorf("failed to count popular movies: %w", err)
	}
	if err := tx.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return stats, fmt.Errorf("failed to count users: %w", err)
	}
	if err := tx.Model(&models.WatchlistEntry{}).Where("user_id = ?", models.DemoUserID).Count(&stats.WatchlistEntries).Error; err != nil {
		return stats, fmt.Errorf("failed to count watchlist entries: %w", err)
	}

	var movies []models.Movie
	if err := tx.Select("avg_rating", "is_popular").Find(&movies).Error; err != nil {
		return stats, fmt.Errorf("failed to load ratings: %w", err)
	}

	counts := make(map[catalog.Label]int64, len(catalog.Labels))
	var sum float64
	for _, m := range movies {
		counts[catalog.Genre(m.AvgRating, m.IsPopular)]++
		sum += m.AvgRating
	}
	if len(movies) > 0 {
		stats.AverageRating = sum / float64(len(movies))
	}
	for _, label := range catalog.Labels {
		if counts[label] > 0 {
			stats.GenreDistribution = append(stats.GenreDistribution, GenreCount{Genre: label, Count: counts[label]})
		}
	}

	return stats, nil
}
