// Package logging provides the zerolog-based structured logging
// infrastructure shared by the CLI and the engine. Loggers travel on the
// context so library code never reaches for a global.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level ("trace" ... "error"); defaults to info
	// when empty or unparsable.
	Level string `yaml:"level"`

	// Format selects "console" (default) or "json" output.
	Format string `yaml:"format"`

	// File, when set, receives a copy of every log line in addition to
	// stderr.
	File string `yaml:"file"`
}

// New builds a logger from the config. It returns the logger and a close
// function that releases the log file, if one was opened.
func New(cfg Config) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	if cfg.Format == "json" {
		writers = append(writers, os.Stderr)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	closeFn := func() {}
	if cfg.File != "" {
		logFile, fileErr := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if fileErr != nil {
			return zerolog.Nop(), closeFn, fileErr
		}
		writers = append(writers, logFile)
		closeFn = func() { _ = logFile.Close() }
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return logger, closeFn, nil
}

type ctxKey struct{}

// WithContext attaches the logger to the context.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to the context, or a disabled
// logger when none was attached.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}
