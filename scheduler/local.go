// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"

	"github.com/danielhkuo/tskr/models"
)

// Local runs jobs in this process on top of robfig/cron. Jobs may be added
// before Start; they are scheduled when it runs.
type Local struct {
	mu       sync.Mutex
	registry *Registry
	store    Store
	loc      *time.Location
	logger   *slog.Logger

	cron    *cron.Cron
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	manual  sync.WaitGroup
	jobs    map[string]*entry
}

type entry struct {
	spec   JobSpec
	paused bool
	id     cron.EntryID // zero while unscheduled
	prev   time.Time
}

type Option func(*Local)

// WithStore persists job definitions and run history
func WithStore(s Store) Option {
	return func(l *Local) { l.store = s }
}

// WithLocation sets the time zone cron expressions are evaluated in
func WithLocation(loc *time.Location) Option {
	return func(l *Local) { l.loc = loc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Local) { l.logger = logger }
}

func NewLocal(registry *Registry, opts ...Option) *Local {
	l := &Local{
		registry: registry,
		loc:      time.Local,
		logger:   slog.Default(),
		jobs:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyRunning
	}

	if l.store != nil {
		stored, err := l.store.LoadJobs(ctx)
		if err != nil {
			return fmt.Errorf("failed to load jobs: %w", err)
		}
		for _, sj := range stored {
			if _, ok := l.jobs[sj.Spec.ID]; !ok {
				l.jobs[sj.Spec.ID] = &entry{spec: sj.Spec, paused: sj.Paused}
			}
		}
	}

	cl := cronLogger{l: l.logger}
	l.cron = cron.New(
		cron.WithLocation(l.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	l.runCtx, l.cancel = context.WithCancel(context.Background())

	for _, e := range l.jobs {
		if e.paused {
			continue
		}
		if err := l.schedule(e); err != nil {
			l.logger.Error("failed to schedule job", "job_id", e.spec.ID, "error", err)
		}
	}

	l.cron.Start()
	l.running = true
	l.logger.Info("scheduler started", "jobs", len(l.jobs))
	return nil
}

// Shutdown stops scheduling and waits for running jobs until ctx is done
func (l *Local) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrNotRunning
	}
	stopped := l.cron.Stop()
	l.running = false
	for _, e := range l.jobs {
		e.id = 0
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		l.manual.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		l.cancel()
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
	l.cancel()
	l.logger.Info("scheduler stopped")
	return nil
}

func (l *Local) State(context.Context) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{Running: l.running, Jobs: len(l.jobs)}, nil
}

func (l *Local) AddJob(ctx context.Context, spec JobSpec) (JobInfo, error) {
	if err := spec.Validate(); err != nil {
		return JobInfo{}, err
	}
	if _, ok := l.registry.Lookup(spec.Task); !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrUnknownTask, spec.Task)
	}
	replace := spec.ReplaceExisting
	spec.ReplaceExisting = false

	l.mu.Lock()
	defer l.mu.Unlock()

	old, exists := l.jobs[spec.ID]
	if exists && !replace {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobExists, spec.ID)
	}

	if l.store != nil {
		if err := l.store.SaveJob(ctx, spec, false); err != nil {
			return JobInfo{}, fmt.Errorf("failed to save job: %w", err)
		}
	}

	if exists {
		l.unschedule(old)
	}
	e := &entry{spec: spec}
	l.jobs[spec.ID] = e
	if l.running {
		if err := l.schedule(e); err != nil {
			return JobInfo{}, err
		}
	}

	l.logger.Info("job added", "job_id", spec.ID, "task", spec.Task, "trigger", spec.Trigger.Type)
	return l.info(e), nil
}

func (l *Local) GetJob(_ context.Context, id string) (JobInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.jobs[id]
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return l.info(e), nil
}

// ListJobs returns all jobs ordered by id
func (l *Local) ListJobs(context.Context) ([]JobInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	jobs := make([]JobInfo, 0, len(l.jobs))
	for _, e := range l.jobs {
		jobs = append(jobs, l.info(e))
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

func (l *Local) RemoveJob(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if l.store != nil {
		if err := l.store.DeleteJob(ctx, id); err != nil {
			return fmt.Errorf("failed to delete job: %w", err)
		}
	}
	l.unschedule(e)
	delete(l.jobs, id)

	l.logger.Info("job removed", "job_id", id)
	return nil
}

func (l *Local) PauseJob(ctx context.Context, id string) (JobInfo, error) {
	return l.setPaused(ctx, id, true)
}

func (l *Local) ResumeJob(ctx context.Context, id string) (JobInfo, error) {
	return l.setPaused(ctx, id, false)
}

func (l *Local) setPaused(ctx context.Context, id string, paused bool) (JobInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.jobs[id]
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if e.paused == paused {
		return l.info(e), nil
	}
	if l.store != nil {
		if err := l.store.SaveJob(ctx, e.spec, paused); err != nil {
			return JobInfo{}, fmt.Errorf("failed to save job: %w", err)
		}
	}

	e.paused = paused
	if paused {
		l.unschedule(e)
	} else if l.running {
		if err := l.schedule(e); err != nil {
			return JobInfo{}, err
		}
	}

	l.logger.Info("job state changed", "job_id", id, "paused", paused)
	return l.info(e), nil
}

// RunJob executes the job once, now, without touching its schedule
func (l *Local) RunJob(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return ErrNotRunning
	}
	e, ok := l.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	l.manual.Add(1)
	go func() {
		defer l.manual.Done()
		l.execute(e, false)
	}()
	return nil
}

// schedule and unschedule require l.mu
func (l *Local) schedule(e *entry) error {
	sched, err := e.spec.Trigger.Schedule(l.loc)
	if err != nil {
		return err
	}
	e.id = l.cron.Schedule(sched, cron.FuncJob(func() { l.execute(e, true) }))
	return nil
}

func (l *Local) unschedule(e *entry) {
	if e.id != 0 && l.cron != nil {
		l.cron.Remove(e.id)
	}
	e.id = 0
}

func (l *Local) info(e *entry) JobInfo {
	info := JobInfo{JobSpec: e.spec, Paused: e.paused}
	if l.running && e.id != 0 {
		if next := l.cron.Entry(e.id).Next; !next.IsZero() {
			info.NextRun = &next
		}
	}
	if !e.prev.IsZero() {
		prev := e.prev
		info.PrevRun = &prev
	}
	return info
}

func (l *Local) execute(e *entry, scheduled bool) {
	spec := e.spec
	started := time.Now()
	err := l.call(spec)
	finished := time.Now()

	run := models.JobRun{
		JobID:      spec.ID,
		Task:       spec.Task,
		StartedAt:  started,
		FinishedAt: finished,
		Status:     models.RunSucceeded,
	}
	if err != nil {
		run.Status = models.RunFailed
		run.Error = truncate(err.Error(), 1024)
		l.logger.Error("job failed", "job_id", spec.ID, "task", spec.Task, "error", err)
	} else {
		l.logger.Info("job ran", "job_id", spec.ID, "task", spec.Task,
			"duration_ms", finished.Sub(started).Milliseconds())
	}

	l.mu.Lock()
	e.prev = started
	// one-shot jobs are done after their scheduled run
	oneShot := scheduled && spec.Trigger.Type == models.TriggerDate && l.jobs[spec.ID] == e
	if oneShot {
		l.unschedule(e)
		delete(l.jobs, spec.ID)
	}
	ctx := l.runCtx
	l.mu.Unlock()

	if l.store == nil {
		return
	}
	if err := l.store.RecordRun(ctx, run); err != nil {
		l.logger.Error("failed to record job run", "job_id", spec.ID, "error", err)
	}
	if oneShot {
		if err := l.store.DeleteJob(ctx, spec.ID); err != nil {
			l.logger.Error("failed to delete finished job", "job_id", spec.ID, "error", err)
		}
	}
}

// call runs the task, turning panics into errors
func (l *Local) call(spec JobSpec) (err error) {
	task, ok := l.registry.Lookup(spec.Task)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, spec.Task)
	}

	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("task %s panicked: %v", spec.Task, v)
		}
	}()

	l.mu.Lock()
	ctx := l.runCtx
	l.mu.Unlock()
	return task(ctx, spec.Args)
}

// truncate cuts s to at most n bytes on a rune boundary. Postgres rejects
// invalid UTF-8 in text columns.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

var _ Scheduler = (*Local)(nil)
