// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/cliparse"
	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/models"
)

// CookieName carries the signed session token
const CookieName = "tskr_session"

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired")
	ErrNotBound       = errors.New("login manager has no database")
)

type ctxKey struct{}

// LoginManager issues and resolves server-side sessions. Init configures
// it from the app config; Bind attaches the database once it is connected.
type LoginManager struct {
	mu     sync.RWMutex
	db     *gorm.DB
	secret string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewLoginManager() *LoginManager {
	return &LoginManager{ttl: 24 * time.Hour, now: time.Now}
}

func (m *LoginManager) Init(cfg cliparse.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = cfg.SecretKey
	if cfg.SessionTTL > 0 {
		m.ttl = cfg.SessionTTL
	}
	m.secure = cfg.Name == cliparse.Production
}

func (m *LoginManager) Bind(db *gorm.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = db
}

func (m *LoginManager) conn() (*gorm.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, ErrNotBound
	}
	return m.db, nil
}

// Login creates a session for user, sets the session cookie and returns
// the signed token for API clients
func (m *LoginManager) Login(ctx context.Context, w http.ResponseWriter, user *models.User) (string, time.Time, error) {
	db, err := m.conn()
	if err != nil {
		return "", time.Time{}, err
	}

	token, err := GenerateToken()
	if err != nil {
		return "", time.Time{}, err
	}

	now := m.now()
	expires := now.Add(m.ttl)
	session := models.Session{
		ID:        HashToken(token),
		UserID:    user.ID,
		ExpiresAt: expires,
		CreatedAt: now,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(&session).Error; err != nil {
			return err
		}
		user.LastLoginAt = &now
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", now).Error
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create session: %w", err)
	}

	signed := SignToken(token, m.secret)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	return signed, expires, nil
}

// Logout deletes the current session, if any, and clears the cookie
func (m *LoginManager) Logout(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})

	token, err := m.tokenFromRequest(r)
	if err != nil {
		return nil
	}
	db, err := m.conn()
	if err != nil {
		return err
	}
	if err := db.WithContext(r.Context()).Delete(&models.Session{}, "id = ?", HashToken(token)).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CurrentUser resolves the session cookie or bearer token of r to a user
func (m *LoginManager) CurrentUser(r *http.Request) (*models.User, error) {
	token, err := m.tokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	db = db.WithContext(r.Context())

	var session models.Session
	err = db.Preload("User").First(&session, "id = ?", HashToken(token)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if !m.now().Before(session.ExpiresAt) {
		if err := db.Delete(&models.Session{}, "id = ?", session.ID).Error; err != nil {
			slog.Error("failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	return &session.User, nil
}

func (m *LoginManager) tokenFromRequest(r *http.Request) (string, error) {
	var signed string
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		signed = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if c, err := r.Cookie(CookieName); err == nil {
		signed = c.Value
	}
	if signed == "" {
		return "", ErrNotLoggedIn
	}
	return VerifySignedToken(signed, m.secret)
}

// Required rejects requests without a valid session and stores the user in
// the request context
func (m *LoginManager) Required(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := m.CurrentUser(r)
		if err != nil {
			if errors.Is(err, ErrNotBound) {
				middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Database not connected")
				return
			}
			if !errors.Is(err, ErrNotLoggedIn) && !errors.Is(err, ErrSessionExpired) &&
				!errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrInvalidSignature) {
				slog.Error("failed to resolve session", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
				return
			}
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	}
}

// UserFromContext returns the user stored by Required
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok
}
