package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/icco/mango/lib/config"
	"github.com/icco/mango/lib/db"
	"github.com/icco/mango/lib/logging"
	"github.com/icco/mango/lib/testutil"
	"github.com/icco/mango/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	cfg := config.DefaultConfig().Database
	cfg.Path = filepath.Join(t.TempDir(), "mango.db")
	return cfg
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		gormDB, err := db.Open(ctx, sqliteConfig(t), logging.Discard())
		require.NoError(t, err)
		assert.Equal(t, "sqlite", gormDB.Dialector.Name())
		require.NoError(t, db.FromDB(gormDB).Close())
	})

	t.Run("mysql is dialed", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.Driver = "mysql"
		cfg.Host = "127.0.0.1"
		cfg.Port = 1
		_, err := db.Open(ctx, cfg, logging.Discard())
		require.Error(t, err)
		assert.NotErrorIs(t, err, db.ErrUnsupportedDriver)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.Driver = "oracle"
		_, err := db.Open(ctx, cfg, logging.Discard())
		assert.ErrorIs(t, err, db.ErrUnsupportedDriver)
	})
}

func TestRunMigrations(t *testing.T) {
	gormDB := testutil.NewDB(t)

	for _, table := range []string{"Movies", "User", "Watchlist"} {
		assert.True(t, gormDB.Migrator().HasTable(table), table)
	}
	assert.True(t, gormDB.Migrator().HasIndex(&models.Movie{}, "idx_movies_catalog_order"))
	assert.True(t, gormDB.Migrator().HasIndex(&models.WatchlistEntry{}, "idx_watchlist_user"))

	require.NoError(t, db.RunMigrations(context.Background(), gormDB, logging.Discard()), "migrations are re-runnable")
}

func TestConnector(t *testing.T) {
	ctx := context.Background()

	t.Run("retries after a failure", func(t *testing.T) {
		gormDB := testutil.NewDB(t)
		calls := 0
		conn := db.NewConnector(func(context.Context) (*gorm.DB, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("connection refused")
			}
			return gormDB, nil
		})

		_, err := conn.DB(ctx)
		assert.EqualError(t, err, "connection refused")

		got, err := conn.DB(ctx)
		require.NoError(t, err)
		assert.Same(t, gormDB, got)

		got, err = conn.DB(ctx)
		require.NoError(t, err)
		assert.Same(t, gormDB, got)
		assert.Equal(t, 2, calls)
	})

	t.Run("new migrates on first use", func(t *testing.T) {
		conn := db.New(sqliteConfig(t), logging.Discard())
		t.Cleanup(func() { _ = conn.Close() })

		gormDB, err := conn.DB(ctx)
		require.NoError(t, err)
		assert.True(t, gormDB.Migrator().HasTable("Movies"))
	})

	t.Run("close without open", func(t *testing.T) {
		conn := db.NewConnector(func(context.Context) (*gorm.DB, error) {
			return nil, errors.New("unused")
		})
		assert.NoError(t, conn.Close())
	})
}
