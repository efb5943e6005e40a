// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/danielhkuo/tskr/models"
)

// StoredJob is a persisted job definition
type StoredJob struct {
	Spec   JobSpec
	Paused bool
}

// Store persists what the scheduler needs to survive a restart
type Store interface {
	LoadJobs(ctx context.Context) ([]StoredJob, error)
	SaveJob(ctx context.Context, spec JobSpec, paused bool) error
	DeleteJob(ctx context.Context, id string) error
	RecordRun(ctx context.Context, run models.JobRun) error
}

// GormStore keeps jobs in the jobs table and runs in job_runs
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LoadJobs(ctx context.Context) ([]StoredJob, error) {
	var rows []models.Job
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	jobs := make([]StoredJob, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, StoredJob{Spec: specFromModel(row), Paused: row.Paused})
	}
	return jobs, nil
}

func (s *GormStore) SaveJob(ctx context.Context, spec JobSpec, paused bool) error {
	row := modelFromSpec(spec, paused)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "task", "trigger_type", "interval_seconds",
			"cron_expr", "run_at", "args", "paused", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", spec.ID, err)
	}
	return nil
}

func (s *GormStore) DeleteJob(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Job{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) RecordRun(ctx context.Context, run models.JobRun) error {
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record run of %s: %w", run.JobID, err)
	}
	return nil
}

// RecentRuns returns the newest runs first. An empty jobID matches all jobs.
func RecentRuns(ctx context.Context, db *gorm.DB, jobID string, limit int) ([]models.JobRun, error) {
	q := db.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit)
	if jobID != "" {
		q = q.Where("job_id = ?", jobID)
	}
	var runs []models.JobRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to query job runs: %w", err)
	}
	return runs, nil
}

var _ Store = (*GormStore)(nil)
