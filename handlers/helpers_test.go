// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/auth"
	"github.com/danielhkuo/tskr/scheduler"
	"github.com/danielhkuo/tskr/tasks"
	"github.com/danielhkuo/tskr/testutil"
)

type testEnv struct {
	deps  *Deps
	db    *gorm.DB
	sched *scheduler.Local
}

// newTestEnv wires deps the way standalone mode does, with a running
// local scheduler
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()

	hasher := auth.NewBcrypt()
	hasher.Init(cfg)
	logins := auth.NewLoginManager()
	logins.Init(cfg)
	logins.Bind(db)

	reg := scheduler.NewRegistry()
	if err := tasks.Register(reg, db); err != nil {
		t.Fatalf("Failed to register tasks: %v", err)
	}
	sched := scheduler.NewLocal(reg, scheduler.WithStore(scheduler.NewGormStore(db)))
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sched.Shutdown(ctx)
	})

	deps := NewDeps(cfg, hasher, logins)
	deps.SetDB(db)
	deps.SetScheduler(sched)

	return &testEnv{deps: deps, db: db, sched: sched}
}

// login creates a user and returns a bearer header for it
func (e *testEnv) login(t *testing.T, username string) map[string]string {
	t.Helper()
	user := testutil.CreateTestUser(t, e.db, username, "password123")
	token, _, err := e.deps.Logins.Login(context.Background(), httptest.NewRecorder(), user)
	if err != nil {
		t.Fatalf("Failed to log in: %v", err)
	}
	return testutil.BearerHeader(token)
}

// serveAuthed runs h behind the login guard
func (e *testEnv) serveAuthed(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.deps.Logins.Required(h)(w, req)
	return w
}
