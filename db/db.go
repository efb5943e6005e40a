// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/logging"
	"github.com/danielhkuo/tskr/models"
)

// Database types
const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Open connects to the configured database and verifies the connection.
// The raw connection is opened with lib/pq or modernc.org/sqlite and then
// handed to gorm.
func Open(cfg cliparse.Config) (*gorm.DB, error) {
	var (
		sqlDB     *sql.DB
		dialector gorm.Dialector
		err       error
	)

	switch cfg.DatabaseType {
	case TypePostgres:
		sqlDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
		}
		dialector = pqDialector{&postgres.Dialector{Config: &postgres.Config{Conn: sqlDB}}}
	case TypeSQLite:
		sqlDB, err = sql.Open("sqlite", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		// One connection keeps :memory: databases alive and serialises writers
		sqlDB.SetMaxOpenConns(1)
		dialector = moderncDialector{sqlite.Dialector{Conn: sqlDB}}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DatabaseType)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: NamingStrategy{},
		Logger:         logging.GormLogger(slog.Default()),
		TranslateError: true,
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialise gorm: %w", err)
	}

	return gdb, nil
}

// Migrate creates or updates all tables needed for the application.
// Safe to call multiple times.
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Job{},
		&models.JobRun{},
		&models.Counter{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// OpenAndMigrate is Open followed by Migrate
func OpenAndMigrate(cfg cliparse.Config) (*gorm.DB, error) {
	gdb, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		Close(gdb)
		return nil, err
	}
	return gdb, nil
}

// Close closes the database connection
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// RedactURL hides the password of a URL-style connection string so it can
// be logged
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
