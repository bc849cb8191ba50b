package common

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// SetupLogging configures the default slog logger. Headless commands log to
// stderr; commands that draw on the terminal pass toFile and log to LogPath.
// The returned func closes the log file, if any.
func SetupLogging(verbose, toFile bool) func() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closer := func() {}
	if toFile {
		out = io.Discard
		logPath := LogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
			if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				out = f
				closer = func() { f.Close() }
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return closer
}
