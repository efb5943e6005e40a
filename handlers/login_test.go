// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/auth"
	"github.com/danielhkuo/tskr/models"
	"github.com/danielhkuo/tskr/testutil"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	h := NewLoginHandler(env.deps)
	testutil.CreateTestUser(t, env.db, "alice", "password123")

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{"valid", models.LoginRequest{Username: "alice", Password: "password123"}, http.StatusOK},
		{"wrong password", models.LoginRequest{Username: "alice", Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", models.LoginRequest{Username: "bob", Password: "password123"}, http.StatusUnauthorized},
		{"missing fields", models.LoginRequest{Username: "alice"}, http.StatusBadRequest},
		{"invalid json", "not json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/login", tt.body, nil)
			w := httptest.NewRecorder()
			h.Login(w, req)
			testutil.AssertStatus(t, w, tt.wantStatus)
		})
	}
}

func TestLoginThenMe(t *testing.T) {
	env := newTestEnv(t)
	h := NewLoginHandler(env.deps)
	testutil.CreateTestUser(t, env.db, "alice", "password123")

	req := testutil.MakeRequest("POST", "/login", models.LoginRequest{Username: "alice", Password: "password123"}, nil)
	w := httptest.NewRecorder()
	h.Login(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.LoginResponse
	cookies := w.Result().Cookies()
	testutil.AssertJSON(t, w, &resp)
	if resp.Token == "" || resp.User.Username != "alice" {
		t.Fatalf("unexpected login response %+v", resp)
	}
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}

	// bearer
	w = env.serveAuthed(h.Me, testutil.MakeRequest("GET", "/login/me", nil, testutil.BearerHeader(resp.Token)))
	testutil.AssertStatus(t, w, http.StatusOK)
	var me models.UserInfo
	testutil.AssertJSON(t, w, &me)
	if me.Username != "alice" || me.LastLoginAt == nil {
		t.Errorf("unexpected user %+v", me)
	}

	// cookie
	req = testutil.MakeRequest("GET", "/login/me", nil, nil)
	req.AddCookie(cookies[0])
	w = env.serveAuthed(h.Me, req)
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestMeRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	h := NewLoginHandler(env.deps)

	w := env.serveAuthed(h.Me, testutil.MakeRequest("GET", "/login/me", nil, nil))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = env.serveAuthed(h.Me, testutil.MakeRequest("GET", "/login/me", nil, testutil.BearerHeader("forged.token")))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	h := NewLoginHandler(env.deps)
	header := env.login(t, "alice")

	w := httptest.NewRecorder()
	h.Logout(w, testutil.MakeRequest("POST", "/login/logout", nil, header))
	testutil.AssertStatus(t, w, http.StatusNoContent)

	w = env.serveAuthed(h.Me, testutil.MakeRequest("GET", "/login/me", nil, header))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	var n int64
	env.db.Model(&models.Session{}).Count(&n)
	if n != 0 {
		t.Errorf("expected session to be deleted, %d left", n)
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	h := NewLoginHandler(env.deps)
	testutil.CreateTestUser(t, env.db, "taken", "password123")

	tests := []struct {
		name       string
		req        models.RegisterRequest
		wantStatus int
	}{
		{"valid", models.RegisterRequest{Username: "newuser", Password: "password123"}, http.StatusCreated},
		{"taken", models.RegisterRequest{Username: "taken", Password: "password123"}, http.StatusConflict},
		{"short password", models.RegisterRequest{Username: "other", Password: "short"}, http.StatusBadRequest},
		{"bad username", models.RegisterRequest{Username: "no spaces!", Password: "password123"}, http.StatusBadRequest},
		// 40 runes pass the length tag but are 80 bytes, past bcrypt's limit
		{"multibyte password too long", models.RegisterRequest{Username: "accents", Password: strings.Repeat("é", 40)}, http.StatusBadRequest},
		{"multibyte password at limit", models.RegisterRequest{Username: "accents2", Password: strings.Repeat("é", 36)}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Register(w, testutil.MakeRequest("POST", "/login/register", tt.req, nil))
			testutil.AssertStatus(t, w, tt.wantStatus)
		})
	}

	// the new user can log in with the hashed password
	w := httptest.NewRecorder()
	h.Login(w, testutil.MakeRequest("POST", "/login", models.LoginRequest{Username: "newuser", Password: "password123"}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestRegisterLosesRace(t *testing.T) {
	env := newTestEnv(t)
	h := NewLoginHandler(env.deps)

	// Insert the same username between the availability check and the
	// handler's own insert
	inserted := false
	err := env.db.Callback().Create().Before("gorm:create").Register("test:concurrent_register", func(tx *gorm.DB) {
		if inserted || tx.Statement.Table != "users" {
			return
		}
		inserted = true
		rival := models.User{ID: "rival", Username: "racer", PasswordHash: "x", CreatedAt: time.Now()}
		if err := tx.Session(&gorm.Session{NewDB: true}).Create(&rival).Error; err != nil {
			t.Errorf("rival insert failed: %v", err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	h.Register(w, testutil.MakeRequest("POST", "/login/register",
		models.RegisterRequest{Username: "racer", Password: "password123"}, nil))
	testutil.AssertStatus(t, w, http.StatusConflict)
	if !inserted {
		t.Error("expected the concurrent insert to run")
	}
}

func TestRegisterDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Config.AllowRegistration = false
	h := NewLoginHandler(env.deps)

	w := httptest.NewRecorder()
	h.Register(w, testutil.MakeRequest("POST", "/login/register",
		models.RegisterRequest{Username: "newuser", Password: "password123"}, nil))
	testutil.AssertStatus(t, w, http.StatusForbidden)
}

func TestLoginWithoutDatabase(t *testing.T) {
	env := newTestEnv(t)
	deps := NewDeps(env.deps.Config, env.deps.Hasher, env.deps.Logins)
	h := NewLoginHandler(deps)

	w := httptest.NewRecorder()
	h.Login(w, testutil.MakeRequest("POST", "/login", models.LoginRequest{Username: "a", Password: "b"}, nil))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}
