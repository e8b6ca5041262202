package clog

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger: colored text for local development,
// JSON everywhere else. Both are wrapped so context attributes are attached.
func NewLogger(w io.Writer, env string, level slog.Level) *slog.Logger {
	var handler slog.Handler
	if env == "local" {
		handler = NewTextHandler(w, WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(NewAttributesHandler(handler))
}
