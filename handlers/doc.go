// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP request handlers for the tskr API.

# Dependencies

Every handler shares one Deps value holding the config, the password
hasher and the login manager:

	deps := handlers.NewDeps(cfg, hasher, logins)
	deps.SetDB(gdb)
	deps.SetScheduler(sched)

In prefork worker mode the database and scheduler are attached by
post-start hooks after the router has been built. Until then handlers that
need them answer 503.

# Route Modules

	GET  /health                 → DevHandler.Health
	GET  /                       → DevHandler.Root
	GET  /dev/info               → DevHandler.Info (not in production)

	POST /example_task/run       → ExampleTaskHandler.Run (one-shot count job)
	POST /example_task/schedule  → ExampleTaskHandler.Schedule (interval count job)
	GET  /example_task/counter   → ExampleTaskHandler.Counter

	GET    /job                  → JobHandler.List
	POST   /job                  → JobHandler.Create
	GET    /job/{id}             → JobHandler.Get
	DELETE /job/{id}             → JobHandler.Delete
	POST   /job/{id}/pause       → JobHandler.Pause
	POST   /job/{id}/resume      → JobHandler.Resume
	POST   /job/{id}/run         → JobHandler.Run
	GET    /job/{id}/runs        → JobHandler.Runs

	POST /login                  → LoginHandler.Login
	POST /login/logout           → LoginHandler.Logout
	POST /login/register         → LoginHandler.Register
	GET  /login/me               → LoginHandler.Me

	GET  /main                   → MainHandler.Dashboard

The /job, /login/me and /main routes sit behind auth.LoginManager.Required.

# Errors

Scheduler errors map to status codes: unknown jobs are 404, duplicate ids
and a stopped scheduler are 409, and bad triggers or unknown tasks are 400.
*/
package handlers
