// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Values are layered, later layers winning:

 1. Preset (development, testing, production)
 2. YAML file given with -c
 3. Environment variables (a .env file is loaded first)
 4. CLI flags

# Presets

	-n development   SQLite tskr-dev.db, debug, registration open
	-n testing       in-memory SQLite, cheap bcrypt
	-n production    PostgreSQL, SECRET_KEY required

The preset comes from -n, else TSKR_CONFIG, else development. Each preset
may carry an InitApp hook; production's rejects the development secret.

# CLI Flags

	-n            Config preset
	-c            YAML config file
	-env-file     dotenv file (default .env)
	-p            Server port
	-d            Database URL
	-t            Database type (sqlite or postgres)
	-instance     Instance directory (logging.cfg)
	-core-host    Scheduler core host
	-core-port    Scheduler core port
	-worker-id    Prefork worker id
	-cors-origins Comma-separated origins trusted with credentials
	-secret-key   Session signing secret

Positional arguments are rejected.

# Environment Variables

	PORT               → -p
	DATABASE_URL       → -d
	DATABASE_TYPE      → -t
	SECRET_KEY         → -secret-key
	TSKR_INSTANCE_PATH → -instance
	CORE_SERVICE_HOST  → -core-host
	CORE_SERVICE_PORT  → -core-port
	CORS_ALLOWED_ORIGINS → -cors-origins

# Jobs

The YAML file may declare jobs that are installed on every start:

	jobs:
	  - id: heartbeat
	    task: example.hello
	    trigger: interval
	    seconds: 60
	  - id: nightly
	    task: example.count
	    trigger: cron
	    cron: "0 3 * * *"
	    args: {name: nightly}

# Validation

ParseFlags validates the result with go-playground/validator and returns
an error for missing or out of range values.
*/
package cliparse
