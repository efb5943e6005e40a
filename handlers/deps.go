// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/auth"
	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/scheduler"
)

// Deps is shared by every handler. In worker mode the database and the
// scheduler are attached after the server has been built, so handlers
// read them through DB and Scheduler on each request.
type Deps struct {
	Config   cliparse.Config
	Hasher   *auth.Bcrypt
	Logins   *auth.LoginManager
	Mode     string
	WorkerID int

	mu    sync.RWMutex
	db    *gorm.DB
	sched scheduler.Scheduler
}

func NewDeps(cfg cliparse.Config, hasher *auth.Bcrypt, logins *auth.LoginManager) *Deps {
	return &Deps{
		Config: cfg,
		Hasher: hasher,
		Logins: logins,
		Mode:   models.ModeStandalone,
	}
}

func (d *Deps) SetDB(db *gorm.DB) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.db = db
}

func (d *Deps) SetScheduler(s scheduler.Scheduler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sched = s
}

func (d *Deps) DB() (*gorm.DB, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db, d.db != nil
}

func (d *Deps) Scheduler() (scheduler.Scheduler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sched, d.sched != nil
}

// requireDB writes 503 when the database is not attached yet
func (d *Deps) requireDB(w http.ResponseWriter) (*gorm.DB, bool) {
	db, ok := d.DB()
	if !ok {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Database not connected")
	}
	return db, ok
}

// requireScheduler writes 503 when no scheduler is attached yet
func (d *Deps) requireScheduler(w http.ResponseWriter) (scheduler.Scheduler, bool) {
	s, ok := d.Scheduler()
	if !ok {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Scheduler not connected")
	}
	return s, ok
}

// schedulerError maps scheduler errors to HTTP responses
func schedulerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, scheduler.ErrJobExists):
		middleware.ErrorResponse(w, http.StatusConflict, "Job already exists")
	case errors.Is(err, scheduler.ErrNotRunning):
		middleware.ErrorResponse(w, http.StatusConflict, "Scheduler not running")
	case errors.Is(err, scheduler.ErrUnknownTask),
		errors.Is(err, scheduler.ErrInvalidTrigger),
		errors.Is(err, scheduler.ErrInvalidJob):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("scheduler call failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Scheduler error")
	}
}
