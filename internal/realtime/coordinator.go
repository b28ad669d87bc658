package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gatherhub/internal/domain"
	"gatherhub/internal/metric"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is the store liveness probe consulted before every mutation, so a
// database outage surfaces as a clean failure reply instead of a connection
// timeout. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Coordinator is the protocol state machine: it maps each inbound mutation
// message to a service call, replies to the initiating connection with the
// authoritative result and broadcasts a change notification to everyone
// else. Failed mutations are replied to the initiator only.
type Coordinator struct {
	events domain.EventService
	hub    *Hub
	store  Pinger
	logger *slog.Logger
}

// NewCoordinator wires the coordinator to the event service, the hub and the
// store liveness probe.
func NewCoordinator(events domain.EventService, hub *Hub, store Pinger, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		events: events,
		hub:    hub,
		store:  store,
		logger: logger,
	}
}

// Dispatch routes one inbound message. Unknown message types are dropped.
func (co *Coordinator) Dispatch(ctx context.Context, c *Conn, m *Message) {
	switch m.Type {
	case MsgCreateEvent:
		co.handleCreate(ctx, c, m)
	case MsgUpdateEvent:
		co.handleUpdate(ctx, c, m)
	case MsgDeleteEvent:
		co.handleDelete(ctx, c, m)
	case MsgJoinEvent:
		co.handleJoin(ctx, c, m)
	case MsgLeaveEvent:
		co.handleLeave(ctx, c, m)
	default:
		co.logger.Debug("unknown message type", "conn_id", c.id, "type", m.Type)
	}
}

// admit runs the checks shared by every mutation: an acting identity must be
// present, the user must be within its rate budget, and the store must be
// reachable. Nothing touches the repository when any of these fail.
func (co *Coordinator) admit(ctx context.Context, c *Conn, msgType string) bool {
	if c.sess == nil || c.sess.UserID == "" {
		co.fail(c, msgType, domain.ErrUnauthorized)
		return false
	}
	if !co.hub.AllowMutation(c.sess.UserID) {
		co.fail(c, msgType, domain.ErrRateLimited)
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := co.store.PingContext(pingCtx); err != nil {
		co.logger.Error("store health check failed", "error", err)
		co.fail(c, msgType, domain.ErrUnavailable)
		return false
	}
	return true
}

func (co *Coordinator) decode(c *Conn, msgType string, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		co.logger.Debug("malformed mutation payload", "conn_id", c.id, "type", msgType, "error", err)
		co.replyError(c, errMsgInvalidInput)
		metric.MutationsTotal.WithLabelValues(msgType, "error").Inc()
		return false
	}
	return true
}

func (co *Coordinator) handleCreate(ctx context.Context, c *Conn, m *Message) {
	if !co.admit(ctx, c, m.Type) {
		return
	}
	var req createEventRequest
	if !co.decode(c, m.Type, m.Data, &req) {
		return
	}
	event, err := co.events.CreateEvent(ctx, c.sess, req.EventData)
	if err != nil {
		co.fail(c, m.Type, err)
		return
	}
	co.succeed(c, m.Type,
		newMessage(MsgSuccess, eventReply{Message: msgEventCreated, Event: event}),
		newMessage(MsgEventCreated, event),
	)
}

func (co *Coordinator) handleUpdate(ctx context.Context, c *Conn, m *Message) {
	if !co.admit(ctx, c, m.Type) {
		return
	}
	var req updateEventRequest
	if !co.decode(c, m.Type, m.Data, &req) {
		return
	}
	event, err := co.events.UpdateEvent(ctx, c.sess, req.EventID, req.EventData)
	if err != nil {
		co.fail(c, m.Type, err)
		return
	}
	co.succeed(c, m.Type,
		newMessage(MsgSuccess, eventReply{Message: msgEventUpdated, Event: event}),
		newMessage(MsgEventUpdated, event),
	)
}

func (co *Coordinator) handleDelete(ctx context.Context, c *Conn, m *Message) {
	if !co.admit(ctx, c, m.Type) {
		return
	}
	var req deleteEventRequest
	if !co.decode(c, m.Type, m.Data, &req) {
		return
	}
	deleted, err := co.events.DeleteEvent(ctx, c.sess, req.EventID)
	if err != nil {
		co.fail(c, m.Type, err)
		return
	}
	co.succeed(c, m.Type,
		newMessage(MsgSuccess, deletedReply{Message: msgEventDeleted, EventID: deleted.ID, EventName: deleted.Name}),
		newMessage(MsgEventDeleted, eventDeletedBroadcast{EventID: deleted.ID, EventName: deleted.Name}),
	)
}

func (co *Coordinator) handleJoin(ctx context.Context, c *Conn, m *Message) {
	if !co.admit(ctx, c, m.Type) {
		return
	}
	var req joinEventRequest
	if !co.decode(c, m.Type, m.Data, &req) {
		return
	}
	count, err := co.events.JoinEvent(ctx, c.sess, req.EventID)
	if err != nil {
		co.fail(c, m.Type, err)
		return
	}
	// Both sides carry the count recomputed inside the join transaction;
	// clients overwrite their local value, never increment it.
	co.succeed(c, m.Type,
		newMessage(MsgSuccess, countReply{Message: msgEventJoined, EventID: req.EventID, AttendeeCount: count}),
		newMessage(MsgAttendeeUpdate, attendeeUpdateBroadcast{EventID: req.EventID, AttendeeCount: count}),
	)
}

func (co *Coordinator) handleLeave(ctx context.Context, c *Conn, m *Message) {
	if !co.admit(ctx, c, m.Type) {
		return
	}
	var req joinEventRequest
	if !co.decode(c, m.Type, m.Data, &req) {
		return
	}
	count, err := co.events.LeaveEvent(ctx, c.sess, req.EventID)
	if err != nil {
		co.fail(c, m.Type, err)
		return
	}
	co.succeed(c, m.Type,
		newMessage(MsgSuccess, countReply{Message: msgEventLeft, EventID: req.EventID, AttendeeCount: count}),
		newMessage(MsgAttendeeUpdate, attendeeUpdateBroadcast{EventID: req.EventID, AttendeeCount: count}),
	)
}

func (co *Coordinator) succeed(c *Conn, msgType string, reply, broadcast *Message) {
	co.hub.Reply(c, reply)
	co.hub.BroadcastOthers(c, broadcast)
	metric.MutationsTotal.WithLabelValues(msgType, "ok").Inc()
}

func (co *Coordinator) fail(c *Conn, msgType string, err error) {
	co.replyError(c, userMessage(msgType, err))
	metric.MutationsTotal.WithLabelValues(msgType, "error").Inc()
	if !isExpected(err) {
		co.logger.Error("mutation failed", "conn_id", c.id, "type", msgType, "user_id", c.UserID(), "error", err)
	}
}

func (co *Coordinator) replyError(c *Conn, message string) {
	co.hub.Reply(c, newMessage(MsgError, errorReply{Message: message}))
}

func isExpected(err error) bool {
	for _, known := range []error{
		domain.ErrUnauthorized, domain.ErrForbidden, domain.ErrNotFound,
		domain.ErrConflict, domain.ErrAlreadyJoined, domain.ErrRateLimited,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

// userMessage maps a typed error to its user-facing message. Anything
// unrecognized is reported as a generic store failure so internal detail
// never leaks to clients.
func userMessage(msgType string, err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return errMsgUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		// Owner-gated mutations report the ownership message; for join and
		// leave only a guest session can be forbidden.
		if msgType == MsgUpdateEvent || msgType == MsgDeleteEvent {
			return errMsgNotOwner
		}
		return errMsgGuest
	case errors.Is(err, domain.ErrNotFound):
		return errMsgNotFound
	case errors.Is(err, domain.ErrAlreadyJoined):
		return errMsgAlreadyJoined
	case errors.Is(err, domain.ErrConflict):
		return errMsgConflict
	case errors.Is(err, domain.ErrRateLimited):
		return errMsgRateLimited
	case errors.Is(err, domain.ErrImageUpload):
		return errMsgImageUpload
	case errors.Is(err, domain.ErrUnavailable):
		return errMsgStore
	default:
		return errMsgStore
	}
}
