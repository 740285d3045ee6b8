// Package health serves the /health endpoint.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// DBSource hands out the database connection, opening it if needed.
type DBSource interface {
	DB(ctx context.Context) (*gorm.DB, error)
}

// Health represents the health check response structure.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	DB        struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"db"`
}

// Check returns a handler that pings the database. It answers 200 when the
// ping succeeds and 503 otherwise.
func Check(source DBSource, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := Health{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
		}

		if msg := ping(ctx, source); msg != "" {
			logger.WarnContext(ctx, "Health check failed", slog.String("reason", msg))
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = msg
			writeHealth(w, health, http.StatusServiceUnavailable, logger)
			return
		}

		health.DB.Status = "ok"
		writeHealth(w, health, http.StatusOK, logger)
	}
}

func ping(ctx context.Context, source DBSource) string {
	gormDB, err := source.DB(ctx)
	if err != nil {
		return "Database not connected"
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return "Failed to get database connection"
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return "Database ping failed"
	}
	return ""
}

func writeHealth(w http.ResponseWriter, health Health, status int, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		logger.Error("Failed to encode health response", slog.Any("error", err))
	}
}
