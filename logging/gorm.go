// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package logging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm/logger"
)

type gormWriter struct {
	l *slog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.l.Info(fmt.Sprintf(format, args...), "component", "gorm")
}

// GormLogger routes gorm's log through slog. Every statement is traced only
// when the logger has debug enabled; otherwise just slow queries and errors.
func GormLogger(l *slog.Logger) logger.Interface {
	level := logger.Warn
	if l.Enabled(context.Background(), slog.LevelDebug) {
		level = logger.Info
	}
	return logger.New(gormWriter{l: l}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
