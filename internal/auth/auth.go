// Package auth implements password hashing and cookie sessions. Sessions are
// server-side rows; the cookie carries only an opaque random ID.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "session_id"

const (
	bcryptCost = 12
	sessionTTL = 30 * 24 * time.Hour
)

// ErrUnauthorized means no valid session backs the request.
var ErrUnauthorized = errors.New("unauthorized")

// SessionStore persists sessions and resolves them back to users.
type SessionStore interface {
	InsertSession(ctx context.Context, session *domain.Session) error
	// ResolveSession returns the session's user, treating expired sessions
	// as nonexistent.
	ResolveSession(ctx context.Context, sessionID string) (*domain.User, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// HashPassword hashes a plaintext password at cost 12.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service manages session lifecycle on top of a SessionStore.
type Service struct {
	store SessionStore
	now   func() time.Time
}

func NewService(store SessionStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Create mints a 64-hex-character session ID valid for 30 days.
func (s *Service) Create(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	sessionID := hex.EncodeToString(buf)

	now := s.now().UTC()
	session := &domain.Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if err := s.store.InsertSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sessionID, nil
}

// Resolve maps a session ID to its user, or ErrUnauthorized.
func (s *Service) Resolve(ctx context.Context, sessionID string) (*domain.User, error) {
	if sessionID == "" {
		return nil, ErrUnauthorized
	}
	user, err := s.store.ResolveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// Destroy removes the session row. Destroying an unknown session is not an
// error.
func (s *Service) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// SetCookie attaches the session cookie to the response.
func SetCookie(w http.ResponseWriter, sessionID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
