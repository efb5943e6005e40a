// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConfigFileName is looked up inside the instance directory
const ConfigFileName = "logging.cfg"

// Log levels
const (
	LevelDebug    = "debug"
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelCritical = "critical"
)

// Log types
const (
	TypeConsole = "console"
	TypeFile    = "file"
)

const slogLevelCritical = slog.LevelError + 4

type Settings struct {
	Level      string `json:"level" validate:"required,oneof=debug info warning error critical"`
	Type       string `json:"type" validate:"required,oneof=console file"`
	Format     string `json:"format" validate:"omitempty,oneof=text json"`
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
	AddSource  bool   `json:"add_source"`
}

// DefaultSettings is a text console logger at info level
func DefaultSettings() Settings {
	return Settings{Level: LevelInfo, Type: TypeConsole, Format: "text"}
}

// Validate checks that all fields in Settings are valid
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("validation failed for logging settings: %w", err)
	}

	if s.Type == TypeFile {
		if s.FilePath == "" {
			return errors.New("file path is required for file logger")
		}
		if s.MaxSize < 1 || s.MaxSize > 100 {
			return errors.New("max size must be between 1 and 100 MB")
		}
		if s.MaxBackups < 1 || s.MaxBackups > 10 {
			return errors.New("max backups must be between 1 and 10")
		}
		if s.MaxAge < 1 || s.MaxAge > 365 {
			return errors.New("max age must be between 1 and 365 days")
		}
	}

	return nil
}

// LoadSettings reads JSON logging settings from path. Missing fields keep
// their defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read logging config: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse logging config %s: %w", path, err)
	}
	return s, nil
}

// New builds a logger from settings
func New(s Settings) (*slog.Logger, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	if s.Type == TypeFile {
		if err := os.MkdirAll(filepath.Dir(s.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		w = &lumberjack.Logger{
			Filename:   s.FilePath,
			MaxSize:    s.MaxSize,
			MaxBackups: s.MaxBackups,
			MaxAge:     s.MaxAge,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{
		Level:       ParseLevel(s.Level),
		AddSource:   s.AddSource,
		ReplaceAttr: renameCritical,
	}

	var h slog.Handler
	if s.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), nil
}

// ConfigureFromInstance applies <dir>/logging.cfg when it exists and makes
// the result the process default logger. The bool reports whether a file
// was applied.
func ConfigureFromInstance(dir string) (*slog.Logger, bool, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return slog.Default(), false, nil
		}
		return nil, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		return nil, false, err
	}
	logger, err := New(s)
	if err != nil {
		return nil, false, err
	}
	slog.SetDefault(logger)
	return logger, true, nil
}

// ParseLevel maps a settings level name to a slog level
func ParseLevel(level string) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelCritical:
		return slogLevelCritical
	default:
		return slog.LevelInfo
	}
}

func renameCritical(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= slogLevelCritical {
			a.Value = slog.StringValue("CRITICAL")
		}
	}
	return a
}
