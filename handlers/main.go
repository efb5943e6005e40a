// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/tskr/auth"
	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/scheduler"
)

const dashboardRuns = 10

type MainHandler struct {
	deps *Deps
}

func NewMainHandler(deps *Deps) *MainHandler {
	return &MainHandler{deps: deps}
}

// Dashboard handles GET /main
func (h *MainHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
		return
	}

	db, ok := h.deps.requireDB(w)
	if !ok {
		return
	}

	resp := models.DashboardResponse{User: user.Info()}

	if s, ok := h.deps.Scheduler(); ok {
		st, err := s.State(r.Context())
		if err != nil {
			slog.Warn("failed to read scheduler state", "error", err)
		} else {
			resp.SchedulerRunning = st.Running
			resp.JobCount = st.Jobs
		}
	}

	runs, err := scheduler.RecentRuns(r.Context(), db, "", dashboardRuns)
	if err != nil {
		slog.Error("failed to query job runs", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	resp.RecentRuns = runs
	if resp.RecentRuns == nil {
		resp.RecentRuns = []models.JobRun{}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
