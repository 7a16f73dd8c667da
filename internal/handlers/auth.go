package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diewo77/garage-invoices/auth"
	"github.com/diewo77/garage-invoices/httpx"
	"github.com/diewo77/garage-invoices/internal/services"
	"github.com/diewo77/garage-invoices/validation"
)

type AuthHandler struct {
	users *services.AuthService
	log   *slog.Logger
}

func NewAuthHandler(users *services.AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

// Login checks the credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	user, err := h.users.Authenticate(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

// Register creates a user and starts a session. Every rejection, a taken
// email included, is a 400.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	user, err := h.users.Register(r.Context(), req)
	if errors.Is(err, services.ErrDuplicateEmail) {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), validation.Violations{"email": "already_registered"})
		return
	}
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.OK(w)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	user, err := h.users.Get(r.Context(), uid)
	if errors.Is(err, services.ErrNotFound) {
		auth.ClearSession(w)
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
