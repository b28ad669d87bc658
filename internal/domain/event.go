package domain

import (
	"context"
	"time"
)

// Event is a shared event visible to every connected client.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	DateTime    time.Time `json:"date_time"`
	Category    *string   `json:"category"`
	CoverImage  *string   `json:"cover_image"`
	Location    string    `json:"location"`
	CreatedBy   string    `json:"created_by"`
	CreatorName string    `json:"creator_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventData carries the mutable fields of an event for create and update.
// CoverImage must already be a stored image URL; resolving a raw image
// payload is the caller's responsibility.
type EventData struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	DateTime    time.Time `json:"date_time"`
	Category    *string   `json:"category"`
	CoverImage  *string   `json:"cover_image"`
	Location    string    `json:"location"`
}

// DeletedEvent is what remains of an event after deletion: enough to release
// the external image resource and to announce the deletion by name.
type DeletedEvent struct {
	ID         string  `json:"event_id"`
	Name       string  `json:"event_name"`
	CoverImage *string `json:"-"`
}

// EventList is the aggregate listing view. Upcoming is ordered ascending by
// time, Past descending. JoinedEventIDs is empty for the guest/public view.
// AttendeeCounts maps event id to its current attendee count.
type EventList struct {
	Upcoming       []*Event       `json:"upcoming"`
	Past           []*Event       `json:"past"`
	JoinedEventIDs []string       `json:"joined_event_ids,omitempty"`
	AttendeeCounts map[string]int `json:"attendee_counts"`
}

// EventRepository defines transactional storage operations for events.
// Ownership checks happen inside the same transaction as the write.
type EventRepository interface {
	Create(ctx context.Context, data EventData, ownerID string) (*Event, error)
	Update(ctx context.Context, eventID string, data EventData, actingUserID string) (*Event, error)
	Delete(ctx context.Context, eventID, actingUserID string) (*DeletedEvent, error)
	List(ctx context.Context, viewerUserID string) (*EventList, error)
}

// AttendeeRepository defines join/leave operations. Both return the attendee
// count recomputed inside the same transaction as the membership change.
type AttendeeRepository interface {
	Join(ctx context.Context, eventID, userID string) (int, error)
	Leave(ctx context.Context, eventID, userID string) (int, error)
}

// EventService defines the application-facing operations the realtime
// coordinator and the HTTP delivery layer consume.
type EventService interface {
	CreateEvent(ctx context.Context, sess *Session, data EventData) (*Event, error)
	UpdateEvent(ctx context.Context, sess *Session, eventID string, data EventData) (*Event, error)
	DeleteEvent(ctx context.Context, sess *Session, eventID string) (*DeletedEvent, error)
	JoinEvent(ctx context.Context, sess *Session, eventID string) (int, error)
	LeaveEvent(ctx context.Context, sess *Session, eventID string) (int, error)
	ListEvents(ctx context.Context, viewerUserID string) (*EventList, error)
}
