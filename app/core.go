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
	"time"

	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/db"
	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/scheduler"
)

// Core owns the scheduler that prefork workers share. It serves the
// scheduler over JSON-RPC on the core service address.
type Core struct {
	cfg    cliparse.Config
	db     *gorm.DB
	sched  *scheduler.Local
	server *http.Server
}

// NewCore connects the database and builds the scheduler. With autostart
// the configured jobs are loaded and the scheduler starts at once;
// otherwise it waits for worker #1 to start it.
func NewCore(ctx context.Context, cfg cliparse.Config, autostart bool) (*Core, error) {
	if err := configureLogging(cfg); err != nil {
		return nil, err
	}

	gdb, err := db.OpenAndMigrate(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("database connected", "type", cfg.DatabaseType, "url", db.RedactURL(cfg.DatabaseURL))

	local, err := newLocalScheduler(cfg, gdb)
	if err != nil {
		db.Close(gdb)
		return nil, err
	}

	if autostart {
		if err := scheduler.LoadJobs(ctx, local, cfg.Jobs); err != nil {
			db.Close(gdb)
			return nil, err
		}
		if err := local.Start(ctx); err != nil {
			db.Close(gdb)
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
		slog.Info("core scheduler started")
	}

	rpcHandler, err := scheduler.NewHandler(local)
	if err != nil {
		db.Close(gdb)
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("POST "+scheduler.RPCPath, rpcHandler)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Core{
		cfg:   cfg,
		db:    gdb,
		sched: local,
		server: &http.Server{
			Addr:              cfg.CoreServiceAddr(),
			Handler:           middleware.Recover(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (c *Core) Handler() http.Handler {
	return c.server.Handler
}

// Run listens on the core service address and serves until ctx is
// cancelled
func (c *Core) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", c.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.server.Addr, err)
	}
	return c.Serve(ctx, ln)
}

func (c *Core) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.server.Serve(ln)
	}()
	slog.Info("scheduler core listening", "addr", ln.Addr().String())

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
	if err := c.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("core shutdown failed", "error", err)
	}

	if err := c.Close(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Close stops the scheduler and closes the database
func (c *Core) Close(ctx context.Context) error {
	var errs []error
	if err := c.sched.Shutdown(ctx); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		errs = append(errs, err)
	}
	if err := db.Close(c.db); err != nil {
		errs = append(errs, err)
	}
	slog.Info("scheduler core stopped")
	return errors.Join(errs...)
}
