// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/auth"
	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/db"
	"github.com/danielhkuo/tskr/handlers"
	"github.com/danielhkuo/tskr/logging"
	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/prefork"
	"github.com/danielhkuo/tskr/router"
	"github.com/danielhkuo/tskr/scheduler"
	"github.com/danielhkuo/tskr/tasks"
)

const shutdownTimeout = 10 * time.Second

// App is a configured tskr web application
type App struct {
	cfg    cliparse.Config
	deps   *handlers.Deps
	worker *prefork.Worker // nil when standalone
	server *http.Server

	mu     sync.Mutex
	db     *gorm.DB
	sched  scheduler.Scheduler
	closed bool
}

// New builds the application for cfg. In standalone mode the database is
// connected and the local scheduler started before New returns. In prefork
// worker mode both are deferred to post-start hooks that Run executes.
func New(ctx context.Context, cfg cliparse.Config) (*App, error) {
	if err := configureLogging(cfg); err != nil {
		return nil, err
	}

	preset, err := cliparse.Lookup(cfg.Name)
	if err != nil {
		return nil, err
	}
	if preset.InitApp != nil {
		if err := preset.InitApp(cfg); err != nil {
			return nil, fmt.Errorf("%s config: %w", cfg.Name, err)
		}
	}

	hasher := auth.NewBcrypt()
	hasher.Init(cfg)
	logins := auth.NewLoginManager()
	logins.Init(cfg)

	a := &App{
		cfg:  cfg,
		deps: handlers.NewDeps(cfg, hasher, logins),
	}

	worker, err := detectWorker(cfg)
	switch {
	case err == nil:
		a.setupWorker(worker)
	case errors.Is(err, prefork.ErrStandalone):
		if err := a.setupStandalone(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
	default:
		return nil, err
	}

	mux := router.NewRouter(a.deps)
	a.server = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           middleware.Recover(middleware.CORS(cfg.AllowedOrigins)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Handler is the router wrapped with the global middleware
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func configureLogging(cfg cliparse.Config) error {
	if cfg.InstancePath != "" {
		_, applied, err := logging.ConfigureFromInstance(cfg.InstancePath)
		if err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}
		if applied {
			slog.Info("logging configured", "file", cfg.InstancePath+"/"+logging.ConfigFileName)
			return nil
		}
	}

	s := logging.DefaultSettings()
	if cfg.Debug {
		s.Level = logging.LevelDebug
	}
	logger, err := logging.New(s)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func detectWorker(cfg cliparse.Config) (*prefork.Worker, error) {
	if cfg.WorkerID != 0 {
		return prefork.FromID(cfg.WorkerID)
	}
	return prefork.Detect()
}

func (a *App) setupWorker(w *prefork.Worker) {
	a.worker = w
	a.deps.Mode = models.ModeWorker
	a.deps.WorkerID = w.ID()

	w.PostStart(a.connectWorkerDB)
	w.PostStart(a.connectWorkerScheduler)
}

// connectWorkerDB opens the database inside the worker. Worker 1 migrates
// the schema; the rest only connect.
func (a *App) connectWorkerDB(_ context.Context, w *prefork.Worker) error {
	open := db.Open
	if w.IsPrimary() {
		open = db.OpenAndMigrate
	}
	gdb, err := open(a.cfg)
	if err != nil {
		return err
	}
	a.attachDB(gdb)
	slog.Info(fmt.Sprintf("worker #%d: database connected", w.ID()))
	return nil
}

func (a *App) connectWorkerScheduler(ctx context.Context, w *prefork.Worker) error {
	remote := scheduler.NewRemote(a.cfg.CoreServiceAddr())

	if w.IsPrimary() {
		if err := scheduler.LoadJobs(ctx, remote, a.cfg.Jobs); err != nil {
			return err
		}
		if err := remote.Start(ctx); err != nil && !errors.Is(err, scheduler.ErrAlreadyRunning) {
			return fmt.Errorf("failed to start scheduler on core %s: %w", a.cfg.CoreServiceAddr(), err)
		}
		slog.Info("worker #1: trigger scheduler start")
	} else {
		slog.Info(fmt.Sprintf("worker #%d: scheduler connected", w.ID()))
	}

	a.attachScheduler(remote)
	return nil
}

func (a *App) setupStandalone(ctx context.Context) error {
	slog.Info("running without prefork workers")

	gdb, err := db.OpenAndMigrate(a.cfg)
	if err != nil {
		return err
	}
	a.attachDB(gdb)
	slog.Info("database connected", "type", a.cfg.DatabaseType, "url", db.RedactURL(a.cfg.DatabaseURL))

	local, err := newLocalScheduler(a.cfg, gdb)
	if err != nil {
		return err
	}
	a.attachScheduler(local)

	if err := scheduler.LoadJobs(ctx, local, a.cfg.Jobs); err != nil {
		return err
	}
	if err := local.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	slog.Info("local scheduler started")
	return nil
}

// newLocalScheduler builds an in-process scheduler with the example tasks
// and a database-backed store
func newLocalScheduler(cfg cliparse.Config, gdb *gorm.DB) (*scheduler.Local, error) {
	reg := scheduler.NewRegistry()
	if err := tasks.Register(reg, gdb); err != nil {
		return nil, err
	}

	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}

	return scheduler.NewLocal(reg,
		scheduler.WithStore(scheduler.NewGormStore(gdb)),
		scheduler.WithLocation(loc),
	), nil
}

func (a *App) attachDB(gdb *gorm.DB) {
	a.mu.Lock()
	a.db = gdb
	a.mu.Unlock()

	a.deps.Logins.Bind(gdb)
	a.deps.SetDB(gdb)
}

func (a *App) attachScheduler(s scheduler.Scheduler) {
	a.mu.Lock()
	a.sched = s
	a.mu.Unlock()

	a.deps.SetScheduler(s)
}

// Mode reports models.ModeStandalone or models.ModeWorker
func (a *App) Mode() string {
	return a.deps.Mode
}

// Run listens on the configured port and serves until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs pending post-start hooks, then serves on ln until ctx is
// cancelled. Everything is shut down before it returns.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if a.worker != nil {
		if err := a.worker.RunPostStart(ctx); err != nil {
			ln.Close()
			a.Close(context.Background())
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()
	slog.Info("Listening", "addr", ln.Addr().String(), "mode", a.deps.Mode)

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("Server closed")

	if err := a.Close(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Close stops the scheduler (or detaches from the core) and closes the
// database. Later calls do nothing.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	sched, gdb := a.sched, a.db
	a.mu.Unlock()

	var errs []error
	if sched != nil {
		if err := sched.Shutdown(ctx); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
			errs = append(errs, err)
		}
	}
	if gdb != nil {
		if err := db.Close(gdb); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
