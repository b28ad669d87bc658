package realtime

import (
	"encoding/json"

	"gatherhub/internal/domain"
)

// Inbound message types, one per mutation.
const (
	MsgCreateEvent = "create_event"
	MsgUpdateEvent = "update_event"
	MsgDeleteEvent = "delete_event"
	MsgJoinEvent   = "join_event"
	MsgLeaveEvent  = "leave_event"
)

// Outbound message types. Success and error are replies to the initiating
// connection only; the rest are broadcasts to every other connection.
const (
	MsgSuccess        = "success"
	MsgError          = "error"
	MsgEventCreated   = "event_created"
	MsgEventUpdated   = "event_updated"
	MsgEventDeleted   = "event_deleted"
	MsgAttendeeUpdate = "attendee_update"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func newMessage(typ string, payload any) *Message {
	m := &Message{Type: typ}
	if payload != nil {
		// Payloads are our own structs; marshalling them cannot fail.
		m.Data, _ = json.Marshal(payload)
	}
	return m
}

type createEventRequest struct {
	EventData domain.EventData `json:"eventData"`
	// UserID is what the client believes its identity is. It is ignored;
	// the acting identity always comes from the connection session.
	UserID string `json:"userId"`
}

type updateEventRequest struct {
	EventID   string           `json:"eventId"`
	EventData domain.EventData `json:"eventData"`
	UserID    string           `json:"userId"`
}

type deleteEventRequest struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
}

type joinEventRequest struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
}

type eventReply struct {
	Message string        `json:"message"`
	Event   *domain.Event `json:"event"`
}

type deletedReply struct {
	Message   string `json:"message"`
	EventID   string `json:"eventId"`
	EventName string `json:"eventName"`
}

type countReply struct {
	Message       string `json:"message"`
	EventID       string `json:"eventId"`
	AttendeeCount int    `json:"attendeeCount"`
}

type errorReply struct {
	Message string `json:"message"`
}

type eventDeletedBroadcast struct {
	EventID   string `json:"eventId"`
	EventName string `json:"eventName"`
}

type attendeeUpdateBroadcast struct {
	EventID       string `json:"eventId"`
	AttendeeCount int    `json:"attendeeCount"`
}

// User-facing message catalogue. Repository and driver details never reach
// clients; these strings are the whole surface.
const (
	msgEventCreated = "Your event has been successfully created."
	msgEventUpdated = "Event details have been updated successfully."
	msgEventDeleted = "Event has been deleted successfully."
	msgEventJoined  = "You have successfully joined the event."
	msgEventLeft    = "You have left the event successfully."

	errMsgUnauthorized  = "Please log in to access this feature."
	errMsgGuest         = "Guests cannot perform this action."
	errMsgNotFound      = "The event you are looking for does not exist."
	errMsgNotOwner      = "You do not have permission to modify this event."
	errMsgAlreadyJoined = "You are already registered for this event."
	errMsgConflict      = "An event like this already exists."
	errMsgRateLimited   = "Too many requests. Please try again in a minute."
	errMsgStore         = "A database error occurred. Please try again."
	errMsgInvalidInput  = "Please check your input and try again."
	errMsgImageUpload   = "Failed to upload image. Please try again."
)
