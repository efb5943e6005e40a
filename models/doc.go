// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and persistent types for the API.

# Request Types

Types for parsing incoming JSON:

  - LoginRequest, RegisterRequest: username, password
  - CreateJobRequest: id, name, task, trigger, args, replace_existing
  - RunExampleRequest, ScheduleExampleRequest: counter, seconds

# Response Types

  - LoginResponse: user, token, expires_at
  - CounterResponse, ExampleJobResponse
  - DashboardResponse: what GET /main shows
  - DevInfoResponse: deployment details for GET /dev/info
  - ErrorResponse: error, message

# Persistent Types

gorm models, migrated by the db package:

  - User: login identity with a bcrypt password hash
  - Session: server-side login session (sha256 of the token as key)
  - Job: scheduler job definition
  - JobRun: one execution of a job
  - Counter: named counter bumped by the example task

# Constants

Trigger types:

	TriggerInterval = "interval"
	TriggerCron     = "cron"
	TriggerDate     = "date"

Run status:

	RunSucceeded = "succeeded"
	RunFailed    = "failed"
*/
package models
