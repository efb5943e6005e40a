// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package prefork describes the worker a process runs as when a supervisor
// starts several copies of the server. A supervisor marks each copy with
// TSKR_WORKER_ID (1..N); a process without it runs standalone.
//
// Work that must happen inside the worker, such as opening connections, is
// registered as post-start hooks and run just before the worker serves.
package prefork

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// EnvWorkerID names the variable a supervisor sets for each worker
const EnvWorkerID = "TSKR_WORKER_ID"

// ErrStandalone means the process is not a prefork worker
var ErrStandalone = errors.New("prefork: not running as a prefork worker")

// Hook runs in the worker process after it has started
type Hook func(ctx context.Context, w *Worker) error

type Worker struct {
	id    int
	mu    sync.Mutex
	hooks []Hook
	ran   bool
}

// Detect reads the worker id from the environment
func Detect() (*Worker, error) {
	v, ok := os.LookupEnv(EnvWorkerID)
	if !ok || v == "" {
		return nil, ErrStandalone
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("prefork: invalid %s %q: %w", EnvWorkerID, v, err)
	}
	return FromID(id)
}

// FromID returns the worker with the given id. Zero means standalone.
func FromID(id int) (*Worker, error) {
	if id == 0 {
		return nil, ErrStandalone
	}
	if id < 0 {
		return nil, fmt.Errorf("prefork: worker id must be positive, got %d", id)
	}
	return &Worker{id: id}, nil
}

func (w *Worker) ID() int {
	return w.id
}

// IsPrimary reports whether this worker owns scheduler start-up
func (w *Worker) IsPrimary() bool {
	return w.id == 1
}

// PostStart registers a hook. Hooks run in registration order.
func (w *Worker) PostStart(h Hook) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks = append(w.hooks, h)
}

// RunPostStart runs the registered hooks once. The first failing hook stops
// the run and its error is returned; later calls are no-ops.
func (w *Worker) RunPostStart(ctx context.Context) error {
	w.mu.Lock()
	if w.ran {
		w.mu.Unlock()
		return nil
	}
	w.ran = true
	hooks := append([]Hook(nil), w.hooks...)
	w.mu.Unlock()

	for i, h := range hooks {
		if err := h(ctx, w); err != nil {
			return fmt.Errorf("worker #%d: post-start hook %d: %w", w.id, i+1, err)
		}
	}
	return nil
}
