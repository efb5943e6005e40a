// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/scheduler"
	"github.com/danielhkuo/tskr/tasks"
	"github.com/danielhkuo/tskr/testutil"
)

func createJob(t *testing.T, env *testEnv, h *JobHandler, header map[string]string, req models.CreateJobRequest) *httptest.ResponseRecorder {
	t.Helper()
	return env.serveAuthed(h.Create, testutil.MakeRequest("POST", "/job", req, header))
}

func withID(req *http.Request, id string) *http.Request {
	req.SetPathValue("id", id)
	return req
}

func TestJobCreate(t *testing.T) {
	env := newTestEnv(t)
	h := NewJobHandler(env.deps)
	header := env.login(t, "alice")

	tests := []struct {
		name       string
		req        models.CreateJobRequest
		wantStatus int
	}{
		{
			name: "interval",
			req: models.CreateJobRequest{
				ID: "tick", Task: tasks.Hello,
				Trigger: models.TriggerRequest{Type: models.TriggerInterval, Seconds: 60},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate",
			req: models.CreateJobRequest{
				ID: "tick", Task: tasks.Hello,
				Trigger: models.TriggerRequest{Type: models.TriggerInterval, Seconds: 60},
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "replace",
			req: models.CreateJobRequest{
				ID: "tick", Task: tasks.Hello, ReplaceExisting: true,
				Trigger: models.TriggerRequest{Type: models.TriggerInterval, Seconds: 30},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "cron",
			req: models.CreateJobRequest{
				Task:    tasks.Count,
				Trigger: models.TriggerRequest{Type: models.TriggerCron, Cron: "0 * * * *"},
				Args:    map[string]any{"name": "hourly"},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "unknown task",
			req: models.CreateJobRequest{
				Task:    "nope",
				Trigger: models.TriggerRequest{Type: models.TriggerInterval, Seconds: 60},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad trigger",
			req: models.CreateJobRequest{
				Task:    tasks.Hello,
				Trigger: models.TriggerRequest{Type: models.TriggerCron, Cron: "whenever"},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing task",
			req:        models.CreateJobRequest{Trigger: models.TriggerRequest{Type: models.TriggerInterval, Seconds: 1}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := createJob(t, env, h, header, tt.req)
			testutil.AssertStatus(t, w, tt.wantStatus)
		})
	}

	job, err := env.sched.GetJob(context.Background(), "tick")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Trigger.Seconds != 30 {
		t.Errorf("expected replaced interval 30, got %d", job.Trigger.Seconds)
	}
}

func TestJobRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	h := NewJobHandler(env.deps)

	w := env.serveAuthed(h.List, testutil.MakeRequest("GET", "/job", nil, nil))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestJobLifecycle(t *testing.T) {
	env := newTestEnv(t)
	h := NewJobHandler(env.deps)
	header := env.login(t, "alice")

	w := createJob(t, env, h, header, models.CreateJobRequest{
		ID: "life", Name: "Lifecycle", Task: tasks.Count,
		Trigger: models.TriggerRequest{Type: models.TriggerInterval, Seconds: 3600},
		Args:    map[string]any{"name": "life"},
	})
	testutil.AssertStatus(t, w, http.StatusCreated)

	// list
	w = env.serveAuthed(h.List, testutil.MakeRequest("GET", "/job", nil, header))
	testutil.AssertStatus(t, w, http.StatusOK)
	var jobs []scheduler.JobInfo
	testutil.AssertJSON(t, w, &jobs)
	if len(jobs) != 1 || jobs[0].ID != "life" || jobs[0].NextRun == nil {
		t.Fatalf("unexpected jobs %+v", jobs)
	}

	// pause
	w = env.serveAuthed(h.Pause, withID(testutil.MakeRequest("POST", "/job/life/pause", nil, header), "life"))
	testutil.AssertStatus(t, w, http.StatusOK)
	var job scheduler.JobInfo
	testutil.AssertJSON(t, w, &job)
	if !job.Paused || job.NextRun != nil {
		t.Errorf("expected paused job without next run, got %+v", job)
	}

	// resume
	w = env.serveAuthed(h.Resume, withID(testutil.MakeRequest("POST", "/job/life/resume", nil, header), "life"))
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &job)
	if job.Paused {
		t.Error("expected resumed job")
	}

	// run now
	w = env.serveAuthed(h.Run, withID(testutil.MakeRequest("POST", "/job/life/run", nil, header), "life"))
	testutil.AssertStatus(t, w, http.StatusAccepted)

	var runs []models.JobRun
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		w = env.serveAuthed(h.Runs, withID(testutil.MakeRequest("GET", "/job/life/runs", nil, header), "life"))
		testutil.AssertStatus(t, w, http.StatusOK)
		testutil.AssertJSON(t, w, &runs)
		if len(runs) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(runs) != 1 || runs[0].Status != models.RunSucceeded {
		t.Fatalf("expected one successful run, got %+v", runs)
	}

	v, err := tasks.Value(context.Background(), env.db, "life")
	if err != nil || v != 1 {
		t.Errorf("expected counter 1, got %d (err %v)", v, err)
	}

	// get and delete
	w = env.serveAuthed(h.Get, withID(testutil.MakeRequest("GET", "/job/life", nil, header), "life"))
	testutil.AssertStatus(t, w, http.StatusOK)

	w = env.serveAuthed(h.Delete, withID(testutil.MakeRequest("DELETE", "/job/life", nil, header), "life"))
	testutil.AssertStatus(t, w, http.StatusNoContent)

	w = env.serveAuthed(h.Get, withID(testutil.MakeRequest("GET", "/job/life", nil, header), "life"))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestJobNotFound(t *testing.T) {
	env := newTestEnv(t)
	h := NewJobHandler(env.deps)
	header := env.login(t, "alice")

	for name, fn := range map[string]http.HandlerFunc{
		"get":    h.Get,
		"delete": h.Delete,
		"pause":  h.Pause,
		"resume": h.Resume,
		"run":    h.Run,
	} {
		t.Run(name, func(t *testing.T) {
			w := env.serveAuthed(fn, withID(testutil.MakeRequest("POST", "/job/missing", nil, header), "missing"))
			testutil.AssertStatus(t, w, http.StatusNotFound)
		})
	}
}

func TestJobRunsLimit(t *testing.T) {
	env := newTestEnv(t)
	h := NewJobHandler(env.deps)
	header := env.login(t, "alice")

	now := time.Now()
	for i := 0; i < 5; i++ {
		env.db.Create(&models.JobRun{
			JobID:      "many",
			Task:       tasks.Hello,
			StartedAt:  now.Add(time.Duration(i) * time.Second),
			FinishedAt: now.Add(time.Duration(i) * time.Second),
			Status:     models.RunSucceeded,
		})
	}

	w := env.serveAuthed(h.Runs, withID(testutil.MakeRequest("GET", "/job/many/runs?limit=2", nil, header), "many"))
	testutil.AssertStatus(t, w, http.StatusOK)
	var runs []models.JobRun
	testutil.AssertJSON(t, w, &runs)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Error("expected newest run first")
	}

	w = env.serveAuthed(h.Runs, withID(testutil.MakeRequest("GET", "/job/many/runs?limit=zero", nil, header), "many"))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestJobWithoutScheduler(t *testing.T) {
	env := newTestEnv(t)
	deps := NewDeps(env.deps.Config, env.deps.Hasher, env.deps.Logins)
	h := NewJobHandler(deps)
	header := env.login(t, "alice")

	w := env.serveAuthed(h.List, testutil.MakeRequest("GET", "/job", nil, header))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}
