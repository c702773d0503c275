package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Handler builds the slog handler for w. Format "text" and "json" are taken
// literally; anything else picks text for terminals and JSON otherwise.
func (l LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	switch strings.ToLower(l.Format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	case "json":
		return slog.NewJSONHandler(w, opts)
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// Install makes a logger writing to stdout the process default.
func (l LogConfig) Install() *slog.Logger {
	logger := slog.New(l.Handler(os.Stdout))
	slog.SetDefault(logger)
	return logger
}
