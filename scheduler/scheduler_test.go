// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/models"
)

func TestJobSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    JobSpec
		wantErr error
	}{
		{
			name: "interval",
			spec: JobSpec{ID: "a", Task: "t", Trigger: Trigger{Type: models.TriggerInterval, Seconds: 5}},
		},
		{
			name: "cron",
			spec: JobSpec{ID: "a", Task: "t", Trigger: Trigger{Type: models.TriggerCron, Expr: "*/5 * * * *"}},
		},
		{
			name: "date",
			spec: JobSpec{ID: "a", Task: "t", Trigger: Trigger{Type: models.TriggerDate, RunAt: time.Now()}},
		},
		{
			name:    "missing id",
			spec:    JobSpec{Task: "t", Trigger: Trigger{Type: models.TriggerInterval, Seconds: 5}},
			wantErr: ErrInvalidJob,
		},
		{
			name:    "zero interval",
			spec:    JobSpec{ID: "a", Task: "t", Trigger: Trigger{Type: models.TriggerInterval}},
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "bad cron",
			spec:    JobSpec{ID: "a", Task: "t", Trigger: Trigger{Type: models.TriggerCron, Expr: "every day"}},
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "date without time",
			spec:    JobSpec{ID: "a", Task: "t", Trigger: Trigger{Type: models.TriggerDate}},
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "unknown type",
			spec:    JobSpec{ID: "a", Task: "t", Trigger: Trigger{Type: "weekly"}},
			wantErr: ErrInvalidTrigger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCronTriggerUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	sched, err := Trigger{Type: models.TriggerCron, Expr: "0 9 * * *"}.Schedule(loc)
	require.NoError(t, err)

	from := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) // 07:00 in New York
	next := sched.Next(from)
	assert.Equal(t, 9, next.In(loc).Hour())
	assert.Equal(t, 10, next.In(loc).Day())
}

func TestOnceScheduleFiresOnce(t *testing.T) {
	at := time.Now().Add(time.Hour)
	sched, err := Trigger{Type: models.TriggerDate, RunAt: at}.Schedule(nil)
	require.NoError(t, err)

	assert.True(t, sched.Next(time.Now()).Equal(at))
	assert.True(t, sched.Next(at).IsZero())
}

func TestLoadJobsReplacesConfiguredJobs(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("noop", func(context.Context, map[string]any) error { return nil }))
	s := NewLocal(reg)

	jobs := []cliparse.JobConfig{
		{ID: "tick", Task: "noop", Trigger: models.TriggerInterval, Seconds: 60},
	}
	require.NoError(t, LoadJobs(context.Background(), s, jobs))

	jobs[0].Seconds = 120
	require.NoError(t, LoadJobs(context.Background(), s, jobs))

	job, err := s.GetJob(context.Background(), "tick")
	require.NoError(t, err)
	assert.Equal(t, 120, job.Trigger.Seconds)
}

func TestLoadJobsUnknownTask(t *testing.T) {
	s := NewLocal(NewRegistry())
	err := LoadJobs(context.Background(), s, []cliparse.JobConfig{
		{ID: "x", Task: "missing", Trigger: models.TriggerInterval, Seconds: 1},
	})
	assert.True(t, errors.Is(err, ErrUnknownTask))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	noop := func(context.Context, map[string]any) error { return nil }

	require.NoError(t, reg.Register("b", noop))
	require.NoError(t, reg.Register("a", noop))
	assert.ErrorIs(t, reg.Register("a", noop), ErrTaskExists)
	assert.Error(t, reg.Register("", noop))

	_, ok := reg.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}
