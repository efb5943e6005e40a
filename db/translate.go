// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// The gorm drivers only recognise pgx and mattn errors. These dialectors
// translate the errors of the drivers actually in use, so TranslateError
// yields gorm.ErrDuplicatedKey on both databases.

type pqDialector struct {
	*postgres.Dialector
}

func (d pqDialector) Translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return gorm.ErrDuplicatedKey
		case "foreign_key_violation":
			return gorm.ErrForeignKeyViolated
		}
	}
	return err
}

type moderncDialector struct {
	sqlite.Dialector
}

func (d moderncDialector) Translate(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return gorm.ErrDuplicatedKey
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return gorm.ErrForeignKeyViolated
		}
	}
	return err
}
