// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// TaskFunc is the code a job runs. Args come from the job definition.
type TaskFunc func(ctx context.Context, args map[string]any) error

var ErrTaskExists = errors.New("scheduler: task already registered")

type Registry struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]TaskFunc)}
}

func (r *Registry) Register(name string, fn TaskFunc) error {
	if name == "" || fn == nil {
		return errors.New("scheduler: task needs a name and a function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[name]; ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, name)
	}
	r.tasks[name] = fn
	return nil
}

func (r *Registry) Lookup(name string) (TaskFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tasks[name]
	return fn, ok
}

// Names lists registered tasks in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
