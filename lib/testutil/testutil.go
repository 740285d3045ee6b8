// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/icco/mango/lib/db"
	"github.com/icco/mango/lib/logging"
	"github.com/icco/mango/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated SQLite database in a temporary directory. It is
// closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mango.db")
	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: db.NewGormLogger(logging.Discard()).LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.RunMigrations(context.Background(), gormDB, logging.Discard()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormDB
}

// InsertMovies writes movies directly, bypassing the seeder.
func InsertMovies(t testing.TB, gormDB *gorm.DB, movies ...models.Movie) {
	t.Helper()
	if len(movies) == 0 {
		return
	}
	if err := gormDB.Create(&movies).Error; err != nil {
		t.Fatalf("failed to insert movies: %v", err)
	}
}
