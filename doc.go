// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the tskr server.

tskr lets logged-in users define jobs that run named tasks on interval,
cron or one-shot triggers.

# Starting the Server

Standalone, with the development preset and a local SQLite file:

	go run . serve

Or with a preset and flags:

	TSKR_CONFIG=production DATABASE_URL=postgres://... SECRET_KEY=... go run . serve -p 8080

# Prefork Workers

Under a supervisor, start one core and N workers:

	tskr core -n production
	TSKR_WORKER_ID=1 tskr serve -n production
	TSKR_WORKER_ID=2 tskr serve -n production

Each worker connects the database and the core's scheduler after it has
started. Worker #1 also asks the core to start the scheduler.

# Configuration

Settings resolve as preset, then YAML file (-c), then environment, then
flags:

  - TSKR_CONFIG (-n): development, testing or production
  - PORT (-p): HTTP port
  - DATABASE_TYPE (-t), DATABASE_URL (-d): sqlite or postgres
  - SECRET_KEY (-secret-key): session signing secret
  - TSKR_INSTANCE_PATH (-instance): directory holding logging.cfg
  - CORE_SERVICE_HOST, CORE_SERVICE_PORT: scheduler core address
  - CORS_ALLOWED_ORIGINS (-cors-origins): origins allowed to send cookies

The subcommand is only taken from the first argument; "tskr -p 9000" is
"tskr serve -p 9000".

A .env file in the working directory is loaded first.

# Architecture

  - app: application factory, deployment modes and the scheduler core
  - handlers: HTTP request handlers (dev, example_task, job, login, main)
  - router: Route definitions using Go 1.22+ routing
  - scheduler: local and remote schedulers, JSON-RPC service
  - tasks: example task functions
  - auth: sessions, password hashing and tokens
  - prefork: worker identity and post-start hooks
  - middleware: CORS, logging, recovery, JSON helpers
  - logging: slog setup from logging.cfg
  - models: persistent entities and request/response types
  - db: connection, migration and constraint naming
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
