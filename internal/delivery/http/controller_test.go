package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gatherhub/internal/delivery/http/middleware"
	"gatherhub/internal/domain"
)

type fakeEventService struct {
	list         *domain.EventList
	err          error
	lastViewerID string
}

func (f *fakeEventService) CreateEvent(ctx context.Context, sess *domain.Session, data domain.EventData) (*domain.Event, error) {
	return nil, f.err
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, sess *domain.Session, eventID string, data domain.EventData) (*domain.Event, error) {
	return nil, f.err
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, sess *domain.Session, eventID string) (*domain.DeletedEvent, error) {
	return nil, f.err
}

func (f *fakeEventService) JoinEvent(ctx context.Context, sess *domain.Session, eventID string) (int, error) {
	return 0, f.err
}

func (f *fakeEventService) LeaveEvent(ctx context.Context, sess *domain.Session, eventID string) (int, error) {
	return 0, f.err
}

func (f *fakeEventService) ListEvents(ctx context.Context, viewerUserID string) (*domain.EventList, error) {
	f.lastViewerID = viewerUserID
	return f.list, f.err
}

type fakeIssuer struct {
	token string
	err   error
	last  *domain.Session
}

func (f *fakeIssuer) Issue(sess *domain.Session, expiry time.Duration) (string, error) {
	f.last = sess
	return f.token, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventControllerList(t *testing.T) {
	svc := &fakeEventService{list: &domain.EventList{
		JoinedEventIDs: []string{"ev-1"},
		AttendeeCounts: map[string]int{"ev-1": 3},
	}}
	c := NewEventController(svc, testLogger())

	t.Run("authenticated user gets a personalized view", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		sess := &domain.Session{UserID: "user-1", Role: domain.RoleUser}
		req = req.WithContext(middleware.SetSession(req.Context(), sess))
		rec := httptest.NewRecorder()

		c.List(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-1", svc.lastViewerID)
		require.True(t, strings.Contains(rec.Body.String(), `"joined_event_ids":["ev-1"]`))
	})

	t.Run("guest session gets the public view", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		sess := &domain.Session{UserID: "guest-abc", Role: domain.RoleGuest}
		req = req.WithContext(middleware.SetSession(req.Context(), sess))
		rec := httptest.NewRecorder()

		c.List(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, svc.lastViewerID)
	})

	t.Run("no session gets the public view", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		rec := httptest.NewRecorder()

		c.List(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, svc.lastViewerID)
	})

	t.Run("service failure maps to 500", func(t *testing.T) {
		failing := &fakeEventService{err: errors.New("connection refused")}
		c := NewEventController(failing, testLogger())
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		rec := httptest.NewRecorder()

		c.List(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestAuthControllerGuestLogin(t *testing.T) {
	issuer := &fakeIssuer{token: "signed-token"}
	c := NewAuthController(issuer, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/guest", nil)
	rec := httptest.NewRecorder()
	c.GuestLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, issuer.last)
	require.Equal(t, domain.RoleGuest, issuer.last.Role)
	require.True(t, strings.HasPrefix(issuer.last.UserID, "guest-"))

	var body struct {
		Data guestLoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "signed-token", body.Data.Token)
	require.Equal(t, issuer.last.UserID, body.Data.User.UserID)
}

func TestAuthControllerGuestLoginIssueFailure(t *testing.T) {
	issuer := &fakeIssuer{err: errors.New("bad secret")}
	c := NewAuthController(issuer, testLogger())

	rec := httptest.NewRecorder()
	c.GuestLogin(rec, httptest.NewRequest(http.MethodPost, "/api/auth/guest", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
