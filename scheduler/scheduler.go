// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/models"
)

var (
	ErrAlreadyRunning = errors.New("scheduler: already running")
	ErrNotRunning     = errors.New("scheduler: not running")
	ErrJobNotFound    = errors.New("scheduler: job not found")
	ErrJobExists      = errors.New("scheduler: job already exists")
	ErrUnknownTask    = errors.New("scheduler: unknown task")
	ErrInvalidTrigger = errors.New("scheduler: invalid trigger")
	ErrInvalidJob     = errors.New("scheduler: invalid job")
)

// sentinels are matched by message when errors cross the RPC boundary
var sentinels = []error{
	ErrAlreadyRunning,
	ErrNotRunning,
	ErrJobNotFound,
	ErrJobExists,
	ErrUnknownTask,
	ErrInvalidTrigger,
	ErrInvalidJob,
}

// Scheduler is implemented by the in-process Local scheduler and by Remote,
// which forwards every call to a core process
type Scheduler interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	State(ctx context.Context) (State, error)
	AddJob(ctx context.Context, spec JobSpec) (JobInfo, error)
	GetJob(ctx context.Context, id string) (JobInfo, error)
	ListJobs(ctx context.Context) ([]JobInfo, error)
	RemoveJob(ctx context.Context, id string) error
	PauseJob(ctx context.Context, id string) (JobInfo, error)
	ResumeJob(ctx context.Context, id string) (JobInfo, error)
	RunJob(ctx context.Context, id string) error
}

type State struct {
	Running bool `json:"running"`
	Jobs    int  `json:"jobs"`
}

type Trigger struct {
	Type    string    `json:"type"`
	Seconds int       `json:"seconds,omitempty"`
	Expr    string    `json:"expr,omitempty"`
	RunAt   time.Time `json:"run_at,omitempty"`
}

type JobSpec struct {
	ID              string         `json:"id" validate:"required,max=191"`
	Name            string         `json:"name,omitempty" validate:"max=191"`
	Task            string         `json:"task" validate:"required,max=191"`
	Trigger         Trigger        `json:"trigger"`
	Args            map[string]any `json:"args,omitempty"`
	ReplaceExisting bool           `json:"replace_existing,omitempty"`
}

type JobInfo struct {
	JobSpec
	Paused  bool       `json:"paused"`
	NextRun *time.Time `json:"next_run,omitempty"`
	PrevRun *time.Time `json:"prev_run,omitempty"`
}

var validate = validator.New()

// Validate checks the job's fields and that its trigger can be scheduled
func (s JobSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if _, err := s.Trigger.Schedule(nil); err != nil {
		return err
	}
	return nil
}

// Schedule turns the trigger into a cron schedule. Cron expressions are
// evaluated in loc unless they carry their own CRON_TZ.
func (t Trigger) Schedule(loc *time.Location) (cron.Schedule, error) {
	switch t.Type {
	case models.TriggerInterval:
		if t.Seconds < 1 {
			return nil, fmt.Errorf("%w: interval needs seconds >= 1", ErrInvalidTrigger)
		}
		return cron.Every(time.Duration(t.Seconds) * time.Second), nil
	case models.TriggerCron:
		expr := strings.TrimSpace(t.Expr)
		if expr == "" {
			return nil, fmt.Errorf("%w: cron needs an expression", ErrInvalidTrigger)
		}
		if loc != nil && !strings.HasPrefix(expr, "CRON_TZ=") && !strings.HasPrefix(expr, "TZ=") {
			expr = "CRON_TZ=" + loc.String() + " " + expr
		}
		sched, err := cron.ParseStandard(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
		}
		return sched, nil
	case models.TriggerDate:
		if t.RunAt.IsZero() {
			return nil, fmt.Errorf("%w: date needs run_at", ErrInvalidTrigger)
		}
		return &onceSchedule{at: t.RunAt}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTrigger, t.Type)
	}
}

// onceSchedule fires at its time (immediately if already past) and never
// again
type onceSchedule struct {
	at    time.Time
	fired bool
}

func (s *onceSchedule) Next(now time.Time) time.Time {
	if s.fired {
		return time.Time{}
	}
	s.fired = true
	return s.at
}

// SpecFromConfig converts a configured job; configured jobs always replace
// what is already registered under their id
func SpecFromConfig(jc cliparse.JobConfig) JobSpec {
	return JobSpec{
		ID:   jc.ID,
		Name: jc.Name,
		Task: jc.Task,
		Trigger: Trigger{
			Type:    jc.Trigger,
			Seconds: jc.Seconds,
			Expr:    jc.Cron,
			RunAt:   jc.RunAt,
		},
		Args:            jc.Args,
		ReplaceExisting: true,
	}
}

// LoadJobs installs the configured jobs on s
func LoadJobs(ctx context.Context, s Scheduler, jobs []cliparse.JobConfig) error {
	for _, jc := range jobs {
		if _, err := s.AddJob(ctx, SpecFromConfig(jc)); err != nil {
			return fmt.Errorf("failed to add configured job %q: %w", jc.ID, err)
		}
	}
	return nil
}

func specFromModel(j models.Job) JobSpec {
	spec := JobSpec{
		ID:   j.ID,
		Name: j.Name,
		Task: j.Task,
		Trigger: Trigger{
			Type:    j.TriggerType,
			Seconds: j.IntervalSeconds,
			Expr:    j.CronExpr,
		},
		Args: j.Args,
	}
	if j.RunAt != nil {
		spec.Trigger.RunAt = *j.RunAt
	}
	return spec
}

func modelFromSpec(spec JobSpec, paused bool) models.Job {
	j := models.Job{
		ID:              spec.ID,
		Name:            spec.Name,
		Task:            spec.Task,
		TriggerType:     spec.Trigger.Type,
		IntervalSeconds: spec.Trigger.Seconds,
		CronExpr:        spec.Trigger.Expr,
		Args:            spec.Args,
		Paused:          paused,
	}
	if !spec.Trigger.RunAt.IsZero() {
		at := spec.Trigger.RunAt
		j.RunAt = &at
	}
	return j
}
