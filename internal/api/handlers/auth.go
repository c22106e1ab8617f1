package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerchat/internal/api/middleware"
	"github.com/dvloznov/ledgerchat/internal/auth"
	bq "github.com/dvloznov/ledgerchat/internal/infra/bigquery"
)

// UserStore is the slice of the persistence layer the auth handler needs.
type UserStore interface {
	InsertUser(ctx context.Context, row *bq.UserRow) error
	FindUserByEmail(ctx context.Context, email string) (*bq.UserRow, error)
}

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	users         UserStore
	sessions      *auth.Service
	secureCookies bool
	log           zerolog.Logger
}

// NewAuthHandler creates a new auth handler. secureCookies should be true
// everywhere the API is served over HTTPS.
func NewAuthHandler(users UserStore, sessions *auth.Service, secureCookies bool, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:         users,
		sessions:      sessions,
		secureCookies: secureCookies,
		log:           log,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	ctx := r.Context()

	_, err := h.users.FindUserByEmail(ctx, req.Email)
	if err == nil {
		middleware.WriteError(w, http.StatusConflict, "An account with that email already exists.")
		return
	}
	if !errors.Is(err, bq.ErrNotFound) {
		h.log.Error().Err(err).Msg("Failed to check existing user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to hash password")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	row := &bq.UserRow{
		UserID:       uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedTS:    time.Now().UTC(),
	}
	if err := h.users.InsertUser(ctx, row); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	sessionID, err := h.sessions.Create(ctx, row.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	auth.SetCookie(w, sessionID, h.secureCookies)

	h.log.Info().Str("user_id", row.UserID).Msg("User registered")
	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user": row.Domain(),
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	ctx := r.Context()

	row, err := h.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, bq.ErrNotFound) {
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials.")
			return
		}
		h.log.Error().Err(err).Msg("Failed to look up user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if !auth.VerifyPassword(req.Password, row.PasswordHash) {
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	sessionID, err := h.sessions.Create(ctx, row.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	auth.SetCookie(w, sessionID, h.secureCookies)

	h.log.Info().Str("user_id", row.UserID).Msg("User logged in")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": row.Domain(),
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			h.log.Warn().Err(err).Msg("Failed to destroy session")
		}
	}

	auth.ClearCookie(w)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
