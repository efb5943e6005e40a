// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/models"
)

// Banner is returned by the root endpoint
const Banner = "tskr API v1"

type DevHandler struct {
	deps *Deps
}

func NewDevHandler(deps *Deps) *DevHandler {
	return &DevHandler{deps: deps}
}

// Health handles GET /health
func (h *DevHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Root handles GET /
func (h *DevHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(Banner))
}

// Info handles GET /dev/info
func (h *DevHandler) Info(w http.ResponseWriter, r *http.Request) {
	resp := models.DevInfoResponse{
		Config:   h.deps.Config.Name,
		Mode:     h.deps.Mode,
		WorkerID: h.deps.WorkerID,
	}

	if s, ok := h.deps.Scheduler(); ok {
		st, err := s.State(r.Context())
		if err != nil {
			// still useful without scheduler details
			slog.Warn("failed to read scheduler state", "error", err)
		} else {
			resp.SchedulerRunning = st.Running
			resp.JobCount = st.Jobs
		}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
