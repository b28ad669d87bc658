package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"gatherhub/internal/domain"
)

type staticVerifier struct {
	sess *domain.Session
}

func (v staticVerifier) Verify(token string) (*domain.Session, error) {
	if v.sess == nil {
		return nil, domain.ErrUnauthorized
	}
	return v.sess, nil
}

func dialTestServer(t *testing.T, hub *Hub, co *Coordinator, verifier domain.TokenVerifier) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(Serve(hub, co, verifier, testLogger(), nil))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=some-token"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeRoundTrip(t *testing.T) {
	hub := newTestHub()
	svc := &fakeService{count: 1}
	co := NewCoordinator(svc, hub, &fakePinger{}, testLogger())
	sess := &domain.Session{UserID: "user-1", Name: "Ada", Role: domain.RoleUser}

	conn := dialTestServer(t, hub, co, staticVerifier{sess: sess})
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	payload, err := json.Marshal(Message{Type: MsgJoinEvent, Data: json.RawMessage(`{"eventId":"ev-1"}`)})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var m Message
	require.NoError(t, json.Unmarshal(data, &m))
	require.Equal(t, MsgSuccess, m.Type)

	var reply countReply
	require.NoError(t, json.Unmarshal(m.Data, &reply))
	require.Equal(t, 1, reply.AttendeeCount)
}

func TestServeDropsSilentPeer(t *testing.T) {
	old := pongTimeout
	pongTimeout = 150 * time.Millisecond
	defer func() { pongTimeout = old }()

	hub := newTestHub()
	co := NewCoordinator(&fakeService{}, hub, &fakePinger{}, testLogger())

	dialTestServer(t, hub, co, staticVerifier{})
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	// The client neither talks nor answers pings; the read deadline must
	// reap the connection.
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
