// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tasks holds the task functions jobs can run.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/scheduler"
)

// Task names
const (
	Hello = "example.hello"
	Count = "example.count"
)

// DefaultCounter is bumped when a count job has no "name" argument
const DefaultCounter = "example"

// Register adds the example tasks to reg
func Register(reg *scheduler.Registry, db *gorm.DB) error {
	if err := reg.Register(Hello, hello); err != nil {
		return err
	}
	return reg.Register(Count, counter(db))
}

func hello(_ context.Context, args map[string]any) error {
	who := "world"
	if v, ok := args["name"].(string); ok && v != "" {
		who = v
	}
	slog.Info("hello from the scheduler", "name", who)
	return nil
}

func counter(db *gorm.DB) scheduler.TaskFunc {
	return func(ctx context.Context, args map[string]any) error {
		name := DefaultCounter
		if v, ok := args["name"].(string); ok && v != "" {
			name = v
		}
		by, err := intArg(args, "by", 1)
		if err != nil {
			return err
		}
		_, err = Increment(ctx, db, name, by)
		return err
	}
}

// Increment adds by to the named counter, creating it on first use, and
// returns the new value
func Increment(ctx context.Context, db *gorm.DB, name string, by int64) (int64, error) {
	var c models.Counter
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      gorm.Expr("counters.value + ?", by),
				"updated_at": time.Now(),
			}),
		}).Create(&models.Counter{Name: name, Value: by}).Error
		if err != nil {
			return err
		}
		return tx.First(&c, "name = ?", name).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}
	return c.Value, nil
}

// Value returns the named counter, zero if it was never bumped
func Value(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var c models.Counter
	err := db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&c).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", name, err)
	}
	return c.Value, nil
}

// intArg reads an integer argument. JSON round trips turn numbers into
// float64, so both kinds are accepted.
func intArg(args map[string]any, key string, def int64) (int64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("argument %s must be a whole number, got %v", key, n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("argument %s must be a number, got %T", key, v)
	}
}
