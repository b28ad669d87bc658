package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"gatherhub/internal/domain"
)

type fakeVerifier struct {
	sess *domain.Session
	err  error
}

func (f *fakeVerifier) Verify(token string) (*domain.Session, error) {
	return f.sess, f.err
}

func sessionEcho(t *testing.T, got **domain.Session) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if ok {
			*got = sess
		}
		w.WriteHeader(http.StatusOK)
	}
}

func TestRequireAuth(t *testing.T) {
	sess := &domain.Session{UserID: "user-1", Name: "Ada", Role: domain.RoleUser}

	tests := []struct {
		name       string
		header     string
		verifier   *fakeVerifier
		wantStatus int
		wantSess   bool
	}{
		{
			name:       "valid token",
			header:     "Bearer good-token",
			verifier:   &fakeVerifier{sess: sess},
			wantStatus: http.StatusOK,
			wantSess:   true,
		},
		{
			name:       "missing header",
			header:     "",
			verifier:   &fakeVerifier{sess: sess},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			verifier:   &fakeVerifier{sess: sess},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "rejected token",
			header:     "Bearer bad-token",
			verifier:   &fakeVerifier{err: domain.ErrUnauthorized},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *domain.Session
			handler := RequireAuth(tt.verifier)(sessionEcho(t, &got))

			req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantSess {
				require.Equal(t, sess, got)
			} else {
				require.Nil(t, got)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	sess := &domain.Session{UserID: "user-1", Role: domain.RoleUser}

	t.Run("valid token sets the session", func(t *testing.T) {
		var got *domain.Session
		handler := OptionalAuth(&fakeVerifier{sess: sess})(sessionEcho(t, &got))

		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, sess, got)
	})

	t.Run("invalid token still reaches the handler", func(t *testing.T) {
		var got *domain.Session
		handler := OptionalAuth(&fakeVerifier{err: domain.ErrUnauthorized})(sessionEcho(t, &got))

		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()
		handler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, got)
	})

	t.Run("no token", func(t *testing.T) {
		var got *domain.Session
		handler := OptionalAuth(&fakeVerifier{sess: sess})(sessionEcho(t, &got))

		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, got)
	})
}
