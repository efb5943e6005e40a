// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielhkuo/tskr/auth"
	"github.com/danielhkuo/tskr/middleware"
	"github.com/danielhkuo/tskr/models"
)

var validate = validator.New()

type LoginHandler struct {
	deps *Deps
}

func NewLoginHandler(deps *Deps) *LoginHandler {
	return &LoginHandler{deps: deps}
}

// Login handles POST /login
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username and password are required")
		return
	}

	db, ok := h.deps.requireDB(w)
	if !ok {
		return
	}

	var user models.User
	err := db.WithContext(r.Context()).First(&user, "username = ?", req.Username).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	// same answer for unknown users and wrong passwords
	if err != nil || !h.deps.Hasher.Compare(user.PasswordHash, req.Password) {
		slog.Warn("login failed", "username", req.Username, "ip", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, expires, err := h.deps.Logins.Login(r.Context(), w, &user)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("user logged in", "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{
		User:      user.Info(),
		Token:     token,
		ExpiresAt: expires,
	})
}

// Logout handles POST /login/logout
func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Logins.Logout(w, r); err != nil {
		slog.Error("failed to log out", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register handles POST /login/register
func (h *LoginHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Config.AllowRegistration {
		middleware.ErrorResponse(w, http.StatusForbidden, "Registration is disabled")
		return
	}

	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, registerMessage(err))
		return
	}
	// validator counts runes; bcrypt's limit is in bytes
	if len(req.Password) > auth.MaxPasswordBytes {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password must be at most 72 bytes")
		return
	}

	db, ok := h.deps.requireDB(w)
	if !ok {
		return
	}

	var taken int64
	if err := db.WithContext(r.Context()).Model(&models.User{}).
		Where("username = ?", req.Username).Count(&taken).Error; err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken > 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
		return
	}

	hash, err := h.deps.Hasher.Hash(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := db.WithContext(r.Context()).Create(&user).Error; err != nil {
		// lost a race with a concurrent registration of the same name
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
			return
		}
		slog.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)

	middleware.JSONResponse(w, http.StatusCreated, user.Info())
}

// Me handles GET /login/me
func (h *LoginHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, user.Info())
}

func registerMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid registration"
	}
	switch verrs[0].Field() {
	case "Username":
		return "username must be 3-80 letters or digits"
	case "Password":
		return "password must be 8-72 characters"
	}
	return "Invalid registration"
}
