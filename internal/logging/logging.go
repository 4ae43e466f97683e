// Package logging configures the process-wide logrus.Logger, mapping
// the five log levels original_source/src/server.h's enum log_level
// declares (trace/info/warn/error/fatal) onto logrus's levels and
// reproducing the original's log-to-file-or-stdout choice
// (server_settings.log_to_stdout / log_filename).
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config mirrors the logging fields of original_source/src/server.h's
// struct server_settings.
type Config struct {
	Level    string // "trace", "info", "warn", "error", or "fatal"
	Filename string // ignored when ToStdout is true
	ToStdout bool
}

// New builds a *logrus.Logger per cfg. An empty Level defaults to
// "info", matching the original's default log level.
func New(cfg Config) (*logrus.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	out, err := resolveOutput(cfg)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)

	return logger, nil
}

func resolveOutput(cfg Config) (io.Writer, error) {
	if cfg.ToStdout || cfg.Filename == "" {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(cfg.Filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", cfg.Filename, err)
	}
	return f, nil
}

// parseLevel maps the original's five-level enum onto logrus.Level.
// logrus has no bare "fatal" severity distinct from its Level type's
// own FatalLevel, so the mapping is direct.
func parseLevel(level string) (logrus.Level, error) {
	switch level {
	case "", "info":
		return logrus.InfoLevel, nil
	case "trace":
		return logrus.TraceLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", level)
	}
}
