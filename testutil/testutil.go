// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/db"
	"github.com/danielhkuo/tskr/models"
)

// SetupTestDB creates a fresh in-memory SQLite database with the full schema.
// It is closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenAndMigrate(GetTestConfig())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(gdb); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})

	return gdb
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Name:              cliparse.Testing,
		Port:              8080,
		DatabaseType:      db.TypeSQLite,
		DatabaseURL:       ":memory:",
		SecretKey:         "test-secret-key",
		CoreServiceHost:   "localhost",
		CoreServicePort:   18861,
		BcryptCost:        bcrypt.MinCost,
		SessionTTL:        time.Hour,
		Debug:             true,
		AllowRegistration: true,
	}
}

// CreateTestUser inserts a user with the given password
func CreateTestUser(t *testing.T, gdb *gorm.DB, username, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// CreateTestJob inserts a persisted job definition
func CreateTestJob(t *testing.T, gdb *gorm.DB, id, task string, seconds int) *models.Job {
	t.Helper()

	job := &models.Job{
		ID:              id,
		Name:            id,
		Task:            task,
		TriggerType:     models.TriggerInterval,
		IntervalSeconds: seconds,
	}
	if err := gdb.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// BearerHeader builds the Authorization header for a signed session token
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
