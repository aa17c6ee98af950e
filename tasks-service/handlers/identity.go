package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/chepyr/session-tasks/internal/logger"
	"github.com/chepyr/session-tasks/internal/metrics"
	"github.com/chepyr/session-tasks/shared"
	"github.com/google/uuid"
)

// UserIDHeader carries a self-asserted user id.
const UserIDHeader = "X-User-Id"

type contextKey string

const (
	headerUserIDKey  contextKey = "header_user_id"
	sessionUserIDKey contextKey = "session_user_id"
)

/*
Resolve the header-level identity and put it in the request context:
  - a bearer session token, verified, when session tokens are enabled
  - otherwise the X-User-Id header

The identity is asserted, not authenticated. List and create fall back to
the query or body userId when the context has none; update and delete read
only the body.
*/
func (h *Handler) IdentityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))

		if authHeader := r.Header.Get("Authorization"); authHeader != "" && h.Sessions != nil {
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				shared.SendError(w, "Invalid session token.", http.StatusUnauthorized)
				return
			}
			sub, err := h.Sessions.Verify(tokenString)
			if err != nil {
				logger.Warn("rejected session token", "error", err)
				shared.SendError(w, "Invalid session token.", http.StatusUnauthorized)
				return
			}
			userID = sub
			r = r.WithContext(context.WithValue(r.Context(), sessionUserIDKey, sub))
		}

		if userID != "" {
			r = r.WithContext(context.WithValue(r.Context(), headerUserIDKey, userID))
		}
		next(w, r)
	}
}

// HeaderUserID returns the identity stored by IdentityMiddleware, if any.
func HeaderUserID(ctx context.Context) string {
	userID, _ := ctx.Value(headerUserIDKey).(string)
	return userID
}

// SessionUserID returns the subject of a verified session token, if any.
func SessionUserID(ctx context.Context) string {
	userID, _ := ctx.Value(sessionUserIDKey).(string)
	return userID
}

// errSessionMismatch means the body names a user other than the session subject.
var errSessionMismatch = errors.New("session does not match userId")

// bodyUserID is the identity of update and delete: the body userId only,
// never the header. A verified session must name the same user.
func bodyUserID(r *http.Request, payloadUserID string) (string, error) {
	userID := strings.TrimSpace(payloadUserID)
	if userID == "" {
		return "", nil
	}
	if sub := SessionUserID(r.Context()); sub != "" && sub != userID {
		return "", errSessionMismatch
	}
	return userID, nil
}

// resolveUserID applies the precedence header, then payload, then (for
// endpoints that allow it) a one-off random id that is never stored anywhere
// and so can never see earlier tasks.
func (h *Handler) resolveUserID(r *http.Request, payloadUserID string, allowEphemeral bool) string {
	if userID := HeaderUserID(r.Context()); userID != "" {
		return userID
	}
	if userID := strings.TrimSpace(payloadUserID); userID != "" {
		return userID
	}
	if allowEphemeral && h.EphemeralIdentity {
		metrics.EphemeralIdentities.Inc()
		return uuid.NewString()
	}
	return ""
}
