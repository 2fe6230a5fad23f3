// Package logging builds the structured logger every ambient component
// (internal/rpcapi, internal/storage/s3blob, cmd/vfsctl) writes through.
// Grounded on the teacher's use of log/slog in its storage backends
// (formerly internal/storage/s3/backend.go) and on
// gopkg.in/natefinch/lumberjack.v2 for file rotation, the same rotation
// library GoogleCloudPlatform-gcsfuse wires behind its async logger —
// the teacher's own hand-rolled pkg/utils/log_rotation.go is dropped in
// favor of it (see DESIGN.md).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log output goes and at what level.
type Config struct {
	Level string // debug, info, warn, error
	File  string // empty = stderr

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (c Config) level() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a *slog.Logger writing JSON records to cfg.File (rotated by
// lumberjack) or to stderr when cfg.File is empty.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.level()})
	return slog.New(handler)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
