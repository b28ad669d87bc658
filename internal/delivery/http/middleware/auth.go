package middleware

import (
	"context"
	"net/http"
	"strings"

	h "gatherhub/internal/delivery/http/helpers"
	"gatherhub/internal/domain"
)

type contextKey string

const sessionKey contextKey = "session"

// SetSession returns a context with the session set. Used by auth middleware.
func SetSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the verified session from the context, if
// present.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*domain.Session)
	return sess, ok
}

func tokenFromRequest(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// RequireAuth returns a wrapper that validates the bearer token and sets the
// session in the request context. If the token is missing or invalid, it
// responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			sess, err := verifier.Verify(token)
			if err != nil {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetSession(r.Context(), sess)))
		}
	}
}

// OptionalAuth sets the session in the request context when a valid token is
// present and calls next either way. Handlers treat a missing session as the
// public view.
func OptionalAuth(verifier domain.TokenVerifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if token := tokenFromRequest(r); token != "" {
				if sess, err := verifier.Verify(token); err == nil {
					r = r.WithContext(SetSession(r.Context(), sess))
				}
			}
			next(w, r)
		}
	}
}
