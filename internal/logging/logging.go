// Package logging builds the slog logger shared by the CLI and the core
// packages.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options selects the log level and output format
type Options struct {
	Verbose bool
	Debug   bool
	JSON    bool
	Writer  io.Writer // defaults to os.Stderr
}

// Level maps the CLI flags to a slog level: debug wins over verbose,
// otherwise only warnings and errors are shown.
func (o Options) Level() slog.Level {
	switch {
	case o.Debug:
		return slog.LevelDebug
	case o.Verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// New returns a logger writing to opts.Writer
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level()}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
