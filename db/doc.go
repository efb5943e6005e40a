// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and migrates the schema.

# Connecting

Open picks the driver from the config's database type:

	gdb, err := db.Open(cfg)

  - postgres: lib/pq connection wrapped by gorm.io/driver/postgres
  - sqlite: modernc.org/sqlite (pure Go) wrapped by gorm.io/driver/sqlite

SQLite connections are limited to a single open connection so that
":memory:" databases survive between queries.

# Schema

Migrate auto-migrates every persistent model:

	if err := db.Migrate(gdb); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times.

# Tables

  - users: login identities
  - sessions: login sessions (sessions.user_id → users.id)
  - jobs: scheduler job definitions
  - job_runs: execution history per job
  - counters: values bumped by the example task

# Naming

NamingStrategy prefixes constraint and index names so they are stable
across databases:

	ix_sessions_user_id
	uq_users_username
	ck_jobs_trigger_type
	fk_sessions_user_id_users
*/
package db
