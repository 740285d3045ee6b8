// Package logging builds the slog loggers used across mango.
package logging

import (
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
)

// New returns a slog.Logger backed by a charmbracelet handler. level is one of
// debug, info, warn or error; format is text or json. Unknown values fall back
// to info and text.
func New(w io.Writer, level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}

	opts := charmlog.Options{ReportTimestamp: true, Level: lvl}
	if format == "json" {
		opts.Formatter = charmlog.JSONFormatter
	}

	return slog.New(charmlog.NewWithOptions(w, opts))
}

// Discard returns a logger that drops everything. Used by tests and by
// commands that only care about their exit status.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// StdLogger adapts logger for APIs that still take a *log.Logger.
func StdLogger(logger *slog.Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(logger.Handler(), level)
}

// RequestLogger returns chi's request logging middleware writing through
// logger at info level.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  StdLogger(logger, slog.LevelInfo),
		NoColor: true,
	})
}
