package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/icco/mango/handlers"
	"github.com/icco/mango/lib/config"
	"github.com/icco/mango/lib/db"
	"github.com/icco/mango/lib/health"
	"github.com/icco/mango/lib/lock"
	"github.com/icco/mango/lib/logging"
	"github.com/icco/mango/lib/metrics"
	"github.com/icco/mango/lib/seed"
	"github.com/icco/mango/lib/session"
)

// App wires the HTTP surface to its collaborators.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	conn    *db.Connector
	metrics *metrics.Recorder
	deps    *handlers.Deps
	router  *chi.Mux
}

// NewApp builds the application. The database is not contacted until the
// first request that needs it.
func NewApp(cfg *config.Config, conn *db.Connector, logger *slog.Logger) (*App, error) {
	sessions, err := session.NewStore(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	rec := metrics.New()
	deps := &handlers.Deps{
		DB:       conn,
		Sessions: sessions,
		Seeder:   seed.New(lock.NewFileLock("", logger), logger),
		Metrics:  rec,
		Logger:   logger,
	}
	if err := deps.Init(); err != nil {
		return nil, err
	}

	app := &App{
		cfg:     cfg,
		logger:  logger,
		conn:    conn,
		metrics: rec,
		deps:    deps,
		router:  chi.NewRouter(),
	}

	app.setupRoutes()
	return app, nil
}

func (a *App) setupRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(logging.RequestLogger(a.logger))
	a.router.Use(middleware.Recoverer)
	a.router.Use(a.metrics.Middleware)

	a.router.Get("/", handlers.HandleIndex(a.deps))
	a.router.Group(func(r chi.Router) {
		if a.cfg.Server.RateLimit > 0 {
			r.Use(httprate.LimitByIP(a.cfg.Server.RateLimit, time.Minute))
		}
		r.Post("/", handlers.HandleMutation(a.deps))
	})
	a.router.Get("/seed", handlers.HandleSeed(a.deps))
	a.router.Get("/health", health.Check(a.conn, a.logger))
	a.router.Handle("/metrics", a.metrics.Handler())
	a.router.Handle("/assets/*", http.StripPrefix("/assets/", handlers.Assets()))
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down within
// the configured timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StdLogger(a.logger, slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
