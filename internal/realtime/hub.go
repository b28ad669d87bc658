package realtime

import (
	"log/slog"
	"sync"

	"gatherhub/internal/metric"
)

// Hub tracks the set of live connections and owns the two delivery
// primitives: reply to one connection and broadcast to every other one.
// It keeps no message backlog; a reconnecting client must refetch state.
type Hub struct {
	logger  *slog.Logger
	limiter *rateLimiter

	mu     sync.Mutex
	conns  map[int64]*Conn
	nextID int64
}

// NewHub creates a hub. trackedUsers bounds the rate limiter's memory;
// mutationsPerMinute is the per-user mutation budget.
func NewHub(logger *slog.Logger, trackedUsers, mutationsPerMinute int) *Hub {
	return &Hub{
		logger:  logger,
		limiter: newRateLimiter(trackedUsers, mutationsPerMinute, rateWindow),
		conns:   make(map[int64]*Conn, 64),
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.nextID++
	c.id = h.nextID
	h.conns[c.id] = c
	n := len(h.conns)
	metric.ConnectedClients.Set(float64(n))
	h.mu.Unlock()
	h.logger.Info("client connected", "conn_id", c.id, "user_id", c.UserID(), "clients", n)
}

// unregister removes the connection and signals its write pump through done.
// c.send is never closed: a reply or broadcast racing the disconnect lands in
// the buffer of a channel nothing reads anymore and is garbage collected,
// instead of panicking on a closed channel.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.id)
	n := len(h.conns)
	metric.ConnectedClients.Set(float64(n))
	h.mu.Unlock()
	close(c.done)
	h.logger.Info("client disconnected", "conn_id", c.id, "user_id", c.UserID(), "clients", n)
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Reply queues a message for a single connection. A connection that cannot
// keep up has its message dropped rather than blocking the sender.
func (h *Hub) Reply(c *Conn, m *Message) {
	h.mu.Lock()
	_, live := h.conns[c.id]
	h.mu.Unlock()
	if !live {
		return
	}
	select {
	case c.send <- m:
	default:
		h.logger.Warn("send buffer full, dropping message", "conn_id", c.id, "type", m.Type)
	}
}

// BroadcastOthers queues a message for every live connection except origin.
// The initiator already holds the authoritative reply; delivering the
// broadcast to it as well would apply the change twice client-side.
func (h *Hub) BroadcastOthers(origin *Conn, m *Message) {
	h.mu.Lock()
	targets := make([]*Conn, 0, len(h.conns))
	for id, c := range h.conns {
		if origin != nil && id == origin.id {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		select {
		case c.send <- m:
			metric.BroadcastRecipients.Inc()
		default:
			h.logger.Warn("send buffer full, dropping broadcast", "conn_id", c.id, "type", m.Type)
		}
	}
}

// AllowMutation reports whether the given user is within its mutation rate
// budget. Callers must reject the mutation when this returns false.
func (h *Hub) AllowMutation(userID string) bool {
	return h.limiter.Allow(userID)
}
