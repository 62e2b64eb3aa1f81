package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the application logger: JSON to the log file, plus
// text to console when console is non-nil. The terminal UI passes nil so
// nothing is written over the screen.
//
// A usable logger is always returned. When the file cannot be opened the
// error is returned alongside a console-only (or discarding) logger.
func SetupLogger(cfg LoggingSettings, console io.Writer) (*slog.Logger, func() error, error) {
	level := ParseLevel(cfg.Level)
	noop := func() error { return nil }

	file, err := openLogFile(cfg.File)
	if err != nil {
		if console == nil {
			return NullLogger(), noop, err
		}

		return slog.New(slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})), noop, err
	}

	if console == nil {
		return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})), file.Close, nil
	}

	return SetupLoggerWithWriters(console, file, level), file.Close, nil
}

// SetupLoggerWithWriters fans out to a text handler on console and a JSON
// handler on file.
func SetupLoggerWithWriters(console, file io.Writer, level slog.Level) *slog.Logger {
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})

	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}

// ParseLevel converts a level name to slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NullLogger returns a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("no log file configured")
	}

	path = ExpandHome(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}
