package logger

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a slog.Logger writing to w, tagged with the given service name.
// format is "json" or "text"; anything else falls back to text.
func New(w io.Writer, service, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", service)
}

// Discard returns a logger that drops everything. Used by tests and while the TUI owns the terminal.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
