// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/scheduler"
	"github.com/danielhkuo/tskr/tasks"
)

type ExampleTaskHandler struct {
	deps *Deps
}

func NewExampleTaskHandler(deps *Deps) *ExampleTaskHandler {
	return &ExampleTaskHandler{deps: deps}
}

// Run handles POST /example_task/run
func (h *ExampleTaskHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req models.RunExampleRequest
	// the body is optional
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Counter == "" {
		req.Counter = tasks.DefaultCounter
	}

	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	jobID := "example-run-" + uuid.NewString()
	_, err := s.AddJob(r.Context(), scheduler.JobSpec{
		ID:      jobID,
		Name:    "Example count (once)",
		Task:    tasks.Count,
		Trigger: scheduler.Trigger{Type: models.TriggerDate, RunAt: time.Now()},
		Args:    map[string]any{"name": req.Counter},
	})
	if err != nil {
		schedulerError(w, err)
		return
	}

	slog.Info("example task queued", "job_id", jobID, "counter", req.Counter)

	middleware.JSONResponse(w, http.StatusAccepted, models.ExampleJobResponse{
		JobID:   jobID,
		Counter: req.Counter,
	})
}

// Schedule handles POST /example_task/schedule
func (h *ExampleTaskHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req models.ScheduleExampleRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Seconds < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "seconds must be at least 1")
		return
	}
	if req.Counter == "" {
		req.Counter = tasks.DefaultCounter
	}

	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	// one interval job per counter; scheduling again changes its interval
	jobID := "example-count-" + req.Counter
	_, err := s.AddJob(r.Context(), scheduler.JobSpec{
		ID:              jobID,
		Name:            "Example count every " + (time.Duration(req.Seconds) * time.Second).String(),
		Task:            tasks.Count,
		Trigger:         scheduler.Trigger{Type: models.TriggerInterval, Seconds: req.Seconds},
		Args:            map[string]any{"name": req.Counter},
		ReplaceExisting: true,
	})
	if err != nil {
		schedulerError(w, err)
		return
	}

	slog.Info("example task scheduled", "job_id", jobID, "seconds", req.Seconds)

	middleware.JSONResponse(w, http.StatusCreated, models.ExampleJobResponse{
		JobID:   jobID,
		Counter: req.Counter,
	})
}

// Counter handles GET /example_task/counter?name=...
func (h *ExampleTaskHandler) Counter(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = tasks.DefaultCounter
	}

	db, ok := h.deps.requireDB(w)
	if !ok {
		return
	}

	value, err := tasks.Value(r.Context(), db, name)
	if err != nil {
		slog.Error("failed to read counter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CounterResponse{Name: name, Value: value})
}
