// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the tskr API.

# Route Registration

NewRouter creates a configured http.ServeMux with every route module:

	mux := router.NewRouter(deps)

# Endpoints

Dev:

	GET /health   - Liveness
	GET /         - Banner
	GET /dev/info - Config, mode and scheduler state (not in production)

Example task:

	POST /example_task/run      - Count once, now
	POST /example_task/schedule - Count every N seconds
	GET  /example_task/counter  - Read a counter

Jobs (login required):

	GET    /job            - List jobs
	POST   /job            - Create job
	GET    /job/{id}       - Job details
	DELETE /job/{id}       - Remove job
	POST   /job/{id}/pause - Pause
	POST   /job/{id}/resume
	POST   /job/{id}/run   - Run now
	GET    /job/{id}/runs  - Run history

Login:

	POST /login          - Log in (sets session cookie, returns bearer token)
	POST /login/logout   - Log out
	POST /login/register - Create account (when allowed)
	GET  /login/me       - Current user

Main (login required):

	GET /main - Dashboard
*/
package router
