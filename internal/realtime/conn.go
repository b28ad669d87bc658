package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"gatherhub/internal/domain"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 60 * time.Second
	sendBuffer   = 32
)

// pongTimeout bounds how long a peer may stay silent before the read side
// gives up on it. A var so tests can shorten it.
var pongTimeout = 75 * time.Second

// Conn is one live websocket connection with its session identity. The
// session may be nil for an anonymous viewer; such a connection receives
// broadcasts but every mutation it sends fails up front. done is closed by
// the hub on unregister; send itself is never closed, so a delivery racing a
// disconnect is dropped instead of panicking.
type Conn struct {
	id   int64
	sess *domain.Session
	sock *websocket.Conn
	send chan *Message
	done chan struct{}
}

// UserID returns the session user id, or "" for anonymous connections.
func (c *Conn) UserID() string {
	if c.sess == nil {
		return ""
	}
	return c.sess.UserID
}

// Serve returns the HTTP handler that upgrades a request to a websocket,
// registers the connection with the hub and pumps messages until the client
// disconnects. The bearer token is taken from the `token` query parameter or
// the Authorization header; an absent or invalid token still yields a
// read-only connection. Cross-origin upgrades are only accepted from
// allowedOrigins.
func Serve(hub *Hub, co *Coordinator, verifier domain.TokenVerifier, logger *slog.Logger, allowedOrigins []string) http.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	upgr := &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[strings.TrimSuffix(origin, "/")]
			return ok
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sock, err := upgr.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		var sess *domain.Session
		if token := bearerToken(r); token != "" {
			sess, err = verifier.Verify(token)
			if err != nil {
				logger.Debug("rejected connection token", "error", err)
				sess = nil
			}
		}

		c := &Conn{
			sess: sess,
			sock: sock,
			send: make(chan *Message, sendBuffer),
			done: make(chan struct{}),
		}
		hub.register(c)
		go c.writePump()
		c.readPump(r.Context(), co, logger)
		hub.unregister(c)
	}
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	const prefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

func (c *Conn) readPump(ctx context.Context, co *Coordinator, logger *slog.Logger) {
	c.sock.SetReadDeadline(time.Now().Add(pongTimeout))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		op, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read failed", "conn_id", c.id, "error", err)
			}
			return
		}
		if op != websocket.TextMessage {
			continue
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil || m.Type == "" {
			logger.Debug("discarding malformed message", "conn_id", c.id, "error", err)
			continue
		}
		co.Dispatch(ctx, c, &m)
	}
}

func (c *Conn) writePump() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	defer c.sock.Close()
	for {
		select {
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case m := <-c.send:
			payload, err := json.Marshal(m)
			if err != nil {
				continue
			}
			c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-t.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.sock.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
