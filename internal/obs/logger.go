package obs

import (
	"io"
	"log/slog"
)

// NewLogger — JSON-логгер с полями service и env в каждой записи.
func NewLogger(w io.Writer, level slog.Level, serviceName, env string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("env", env),
	)
}
