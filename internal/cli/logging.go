package cli

import (
	"io"
	"log/slog"
)

// setupLogging installs the default slog logger. Verbose enables debug
// records; otherwise only warnings and errors are shown.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
