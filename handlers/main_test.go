// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/testutil"
)

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	h := NewMainHandler(env.deps)
	header := env.login(t, "alice")

	testutil.CreateTestJob(t, env.db, "seeded", "example.hello", 60)
	env.db.Create(&models.JobRun{
		JobID:      "seeded",
		Task:       "example.hello",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Status:     models.RunSucceeded,
	})

	w := env.serveAuthed(h.Dashboard, testutil.MakeRequest("GET", "/main", nil, header))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.DashboardResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.User.Username != "alice" {
		t.Errorf("expected alice, got %s", resp.User.Username)
	}
	if !resp.SchedulerRunning {
		t.Error("expected scheduler running")
	}
	if len(resp.RecentRuns) != 1 || resp.RecentRuns[0].JobID != "seeded" {
		t.Errorf("unexpected recent runs %+v", resp.RecentRuns)
	}
}

func TestDashboardRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	h := NewMainHandler(env.deps)

	w := env.serveAuthed(h.Dashboard, testutil.MakeRequest("GET", "/main", nil, nil))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestDevEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Mode = models.ModeWorker
	env.deps.WorkerID = 3
	h := NewDevHandler(env.deps)

	w := httptest.NewRecorder()
	h.Health(w, testutil.MakeRequest("GET", "/health", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	if w.Body.String() != "OK" {
		t.Errorf("expected OK, got %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	h.Root(w, testutil.MakeRequest("GET", "/", nil, nil))
	if w.Body.String() != Banner {
		t.Errorf("expected banner, got %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	h.Info(w, testutil.MakeRequest("GET", "/dev/info", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var info models.DevInfoResponse
	testutil.AssertJSON(t, w, &info)
	if info.Config != cliparse.Testing || info.Mode != models.ModeWorker || info.WorkerID != 3 {
		t.Errorf("unexpected info %+v", info)
	}
	if !info.SchedulerRunning {
		t.Error("expected scheduler running")
	}
}
