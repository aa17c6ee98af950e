package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chepyr/session-tasks/internal/logger"
	"github.com/chepyr/session-tasks/shared"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionManager issues and verifies HS256 session tokens whose subject is
// an opaque user id. Tokens only replace the X-User-Id header; the per-owner
// partitioning stays the same.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *SessionManager) Issue(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify returns the token subject. Tokens without exp or sub are rejected.
func (s *SessionManager) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

/*
POST /api/session - start a new session, returns a fresh user id and its token
*/
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		shared.SendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Sessions == nil {
		shared.SendError(w, "Session tokens are disabled.", http.StatusNotFound)
		return
	}

	userID := uuid.NewString()
	token, expiresAt, err := h.Sessions.Issue(userID)
	if err != nil {
		logger.Error("issue session token failed", "error", err)
		shared.SendError(w, "Cannot create session", http.StatusInternalServerError)
		return
	}

	logger.Info("session started", "userId", userID)
	shared.SendJSON(w, http.StatusCreated, map[string]any{
		"userId":    userID,
		"token":     token,
		"expiresAt": expiresAt.UnixMilli(),
	})
}
