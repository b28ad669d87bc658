package http

import (
	"log/slog"
	"net/http"

	h "gatherhub/internal/delivery/http/helpers"
	"gatherhub/internal/delivery/http/middleware"
	"gatherhub/internal/domain"
)

// EventController serves the read-side listing endpoints. All mutations go
// through the realtime protocol; HTTP only covers the initial state fetch a
// client performs on connect or reconnect.
type EventController struct {
	events domain.EventService
	logger *slog.Logger
}

// NewEventController creates an EventController.
func NewEventController(events domain.EventService, logger *slog.Logger) *EventController {
	return &EventController{events: events, logger: logger}
}

// List returns upcoming and past events, the viewer's joined event ids, and
// the attendee counts map. A request without a valid session gets the public
// view, as does a guest session.
func (c *EventController) List(w http.ResponseWriter, r *http.Request) {
	viewerID := ""
	if sess, ok := middleware.SessionFromContext(r.Context()); ok && !sess.IsGuest() {
		viewerID = sess.UserID
	}
	list, err := c.events.ListEvents(r.Context(), viewerID)
	if err != nil {
		c.logger.Error("list events failed", "error", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "failed to list events")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, list)
}

// GuestList returns the public view regardless of any presented token.
func (c *EventController) GuestList(w http.ResponseWriter, r *http.Request) {
	list, err := c.events.ListEvents(r.Context(), "")
	if err != nil {
		c.logger.Error("list events failed", "error", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "failed to list events")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, list)
}
