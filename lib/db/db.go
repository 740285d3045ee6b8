// Package db opens the mango database and owns its schema.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/icco/mango/lib/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrUnsupportedDriver is returned by Open for drivers other than sqlite,
// postgres and mysql.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open connects to the configured database, verifies the connection and
// applies pool settings.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	return gormDB, nil
}

// OpenFunc establishes a database connection.
type OpenFunc func(ctx context.Context) (*gorm.DB, error)

// Connector hands out a single shared connection pool that is opened on
// first use. A failed attempt is not cached; the next call tries again.
type Connector struct {
	mu   sync.Mutex
	open OpenFunc
	db   *gorm.DB
}

// NewConnector returns a Connector that calls open until it succeeds once.
func NewConnector(open OpenFunc) *Connector {
	return &Connector{open: open}
}

// New returns a Connector for cfg. When cfg.AutoMigrate is set, migrations
// run right after the first successful connection.
func New(cfg config.DatabaseConfig, logger *slog.Logger) *Connector {
	return NewConnector(func(ctx context.Context) (*gorm.DB, error) {
		gormDB, err := Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}

		if cfg.AutoMigrate {
			if err := RunMigrations(ctx, gormDB, logger); err != nil {
				closeDB(gormDB, logger)
				return nil, err
			}
		}

		logger.InfoContext(ctx, "Connected to database", slog.String("driver", cfg.Driver))
		return gormDB, nil
	})
}

// FromDB wraps an already open connection.
func FromDB(gormDB *gorm.DB) *Connector {
	return &Connector{db: gormDB}
}

// DB returns the shared connection, opening it if needed.
func (c *Connector) DB(ctx context.Context) (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}
	if c.open == nil {
		return nil, errors.New("no database configured")
	}

	gormDB, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	c.db = gormDB
	return c.db, nil
}

// Close releases the pool if it was ever opened.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.db = nil
	return sqlDB.Close()
}

func closeDB(gormDB *gorm.DB, logger *slog.Logger) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close database", slog.Any("error", err))
	}
}
