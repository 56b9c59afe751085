package middleware

import (
	"context"
	"net/http"
)

// ctxKey is unexported so no other package can collide with the
// session's context slot.
type ctxKey int

const sessionCtxKey ctxKey = iota

// RequireAuth rejects requests that carry no valid session, either as a
// signed cookie or a bearer token. Valid sessions are stashed in the
// request context for handlers to pick up via GetSessionFromContext.
func RequireAuth(sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sm.GetSessionFromRequest(r)
			if session == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
		})
	}
}

// GetSessionFromContext returns the session RequireAuth stored, or nil
// on routes outside the authenticated group.
func GetSessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionCtxKey).(*Session)
	return session
}

// SetSessionInContext stores a session in the context. Exported for
// handler tests that bypass RequireAuth.
func SetSessionInContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}
