// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/handlers"
	"github.com/danielhkuo/tskr/middleware"
)

func NewRouter(deps *handlers.Deps) *http.ServeMux {
	mux := http.NewServeMux()

	registerDev(mux, deps)
	registerExampleTask(mux, deps)
	registerJob(mux, deps)
	registerLogin(mux, deps)
	registerMain(mux, deps)

	return mux
}

func registerDev(mux *http.ServeMux, deps *handlers.Deps) {
	devHandler := handlers.NewDevHandler(deps)

	mux.HandleFunc("GET /health", devHandler.Health)
	mux.HandleFunc("GET /{$}", devHandler.Root)

	// Development helpers stay out of production
	if deps.Config.Name != cliparse.Production {
		mux.HandleFunc("GET /dev/info", middleware.WithLogging(devHandler.Info))
	}
}

func registerExampleTask(mux *http.ServeMux, deps *handlers.Deps) {
	exampleHandler := handlers.NewExampleTaskHandler(deps)

	mux.HandleFunc("POST /example_task/run", middleware.WithLogging(exampleHandler.Run))
	mux.HandleFunc("POST /example_task/schedule", middleware.WithLogging(exampleHandler.Schedule))
	mux.HandleFunc("GET /example_task/counter", middleware.WithLogging(exampleHandler.Counter))
}

func registerJob(mux *http.ServeMux, deps *handlers.Deps) {
	jobHandler := handlers.NewJobHandler(deps)
	required := deps.Logins.Required

	mux.HandleFunc("GET /job", middleware.WithLogging(required(jobHandler.List)))
	mux.HandleFunc("POST /job", middleware.WithLogging(required(jobHandler.Create)))
	mux.HandleFunc("GET /job/{id}", middleware.WithLogging(required(jobHandler.Get)))
	mux.HandleFunc("DELETE /job/{id}", middleware.WithLogging(required(jobHandler.Delete)))
	mux.HandleFunc("POST /job/{id}/pause", middleware.WithLogging(required(jobHandler.Pause)))
	mux.HandleFunc("POST /job/{id}/resume", middleware.WithLogging(required(jobHandler.Resume)))
	mux.HandleFunc("POST /job/{id}/run", middleware.WithLogging(required(jobHandler.Run)))
	mux.HandleFunc("GET /job/{id}/runs", middleware.WithLogging(required(jobHandler.Runs)))
}

func registerLogin(mux *http.ServeMux, deps *handlers.Deps) {
	loginHandler := handlers.NewLoginHandler(deps)

	mux.HandleFunc("POST /login", middleware.WithLogging(loginHandler.Login))
	mux.HandleFunc("POST /login/logout", middleware.WithLogging(loginHandler.Logout))
	mux.HandleFunc("POST /login/register", middleware.WithLogging(loginHandler.Register))
	mux.HandleFunc("GET /login/me", middleware.WithLogging(deps.Logins.Required(loginHandler.Me)))
}

func registerMain(mux *http.ServeMux, deps *handlers.Deps) {
	mainHandler := handlers.NewMainHandler(deps)

	mux.HandleFunc("GET /main", middleware.WithLogging(deps.Logins.Required(mainHandler.Dashboard)))
}
