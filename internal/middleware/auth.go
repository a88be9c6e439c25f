package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/handlers"
	"github.com/HammerMeetNail/playhub/internal/logging"
	"github.com/HammerMeetNail/playhub/internal/models"
	"github.com/HammerMeetNail/playhub/internal/services"
)

const SessionCookieName = "session"

type SessionLookup interface {
	Lookup(ctx context.Context, token string) (uuid.UUID, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthMiddleware resolves the session token on /api/ requests and stores the
// user in the request context. Other paths pass through untouched.
type AuthMiddleware struct {
	sessions SessionLookup
	users    UserLookup
}

func NewAuthMiddleware(sessions SessionLookup, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, users: users}
}

func (m *AuthMiddleware) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		userID, err := m.sessions.Lookup(r.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			logging.Error("Session lookup failed", map[string]interface{}{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			logging.Error("Loading session user failed", map[string]interface{}{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetUserInContext(r.Context(), user)))
	})
}

func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
