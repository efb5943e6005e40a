// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/danielhkuo/tskr/auth"
	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/scheduler"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// JobHandler manages scheduler jobs. All routes require a login.
type JobHandler struct {
	deps *Deps
}

func NewJobHandler(deps *Deps) *JobHandler {
	return &JobHandler{deps: deps}
}

// List handles GET /job
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	jobs, err := s.ListJobs(r.Context())
	if err != nil {
		schedulerError(w, err)
		return
	}
	if jobs == nil {
		jobs = []scheduler.JobInfo{}
	}

	middleware.JSONResponse(w, http.StatusOK, jobs)
}

// Create handles POST /job
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJobRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Task == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "task is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	spec := scheduler.JobSpec{
		ID:   req.ID,
		Name: req.Name,
		Task: req.Task,
		Trigger: scheduler.Trigger{
			Type:    req.Trigger.Type,
			Seconds: req.Trigger.Seconds,
			Expr:    req.Trigger.Cron,
		},
		Args:            req.Args,
		ReplaceExisting: req.ReplaceExisting,
	}
	if req.Trigger.RunAt != nil {
		spec.Trigger.RunAt = *req.Trigger.RunAt
	}

	job, err := s.AddJob(r.Context(), spec)
	if err != nil {
		schedulerError(w, err)
		return
	}

	var username string
	if user, ok := auth.UserFromContext(r.Context()); ok {
		username = user.Username
	}
	slog.Info("job created", "job_id", job.ID, "task", job.Task, "user", username)

	middleware.JSONResponse(w, http.StatusCreated, job)
}

// Get handles GET /job/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	job, err := s.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		schedulerError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, job)
}

// Delete handles DELETE /job/{id}
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.RemoveJob(r.Context(), id); err != nil {
		schedulerError(w, err)
		return
	}

	slog.Info("job deleted", "job_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Pause handles POST /job/{id}/pause
func (h *JobHandler) Pause(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	job, err := s.PauseJob(r.Context(), r.PathValue("id"))
	if err != nil {
		schedulerError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, job)
}

// Resume handles POST /job/{id}/resume
func (h *JobHandler) Resume(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	job, err := s.ResumeJob(r.Context(), r.PathValue("id"))
	if err != nil {
		schedulerError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, job)
}

// Run handles POST /job/{id}/run
func (h *JobHandler) Run(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.requireScheduler(w)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.RunJob(r.Context(), id); err != nil {
		schedulerError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusAccepted, map[string]string{"job_id": id, "status": "started"})
}

// Runs handles GET /job/{id}/runs?limit=N
func (h *JobHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	db, ok := h.deps.requireDB(w)
	if !ok {
		return
	}

	runs, err := scheduler.RecentRuns(r.Context(), db, r.PathValue("id"), limit)
	if err != nil {
		slog.Error("failed to query job runs", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if runs == nil {
		runs = []models.JobRun{}
	}

	middleware.JSONResponse(w, http.StatusOK, runs)
}
