package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var level = new(slog.LevelVar)

type Config struct {
	Level  string // debug, info, warn, error
	File   string // "" logs to Stderr
	Format string // text or json
	Stderr io.Writer
}

func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init builds the logger, installs it as the slog default and returns a
// closer for the log file.
func Init(config Config) (*slog.Logger, io.Closer, error) {
	level.Set(ParseLevel(config.Level))

	var out io.Writer = config.Stderr
	if out == nil {
		out = os.Stderr
	}
	var closer io.Closer = nopCloser{}
	if config.File != "" {
		logfile, err := os.OpenFile(config.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = logfile
		closer = logfile
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch config.Format {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer, nil
}

// SetLevel changes the level of the logger returned by Init.
func SetLevel(levelStr string) {
	level.Set(ParseLevel(levelStr))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
