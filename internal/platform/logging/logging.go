// Package logging builds the zap loggers shared by the server and the dashboard.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger at the given level ("debug", "info", ...).
// Output goes to stderr so it never interleaves with CLI output on stdout.
func New(level string) (*zap.Logger, error) {
	return build(level, "stderr")
}

// NewFile is New writing to a file instead, for the TUI where stderr
// shares the terminal with the alternate screen.
func NewFile(level, path string) (*zap.Logger, error) {
	return build(level, path)
}

func build(level, output string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
			return nil, fmt.Errorf("logging: parse level %q: %w", level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// Install builds a logger and makes it the zap global (used by obs.Time).
// The returned func restores the previous global and flushes the logger.
func Install(level string) (*zap.Logger, func(), error) {
	logger, err := New(level)
	if err != nil {
		return nil, nil, err
	}
	undo := zap.ReplaceGlobals(logger)
	return logger, func() {
		_ = logger.Sync()
		undo()
	}, nil
}
