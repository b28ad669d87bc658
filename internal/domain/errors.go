package domain

import "errors"

// Sentinel errors shared across repositories, services and the realtime
// coordinator. Callers must match with errors.Is; anything else that bubbles
// out of a repository is treated as a persistence failure.
var (
	ErrUnauthorized  = errors.New("authentication required")
	ErrForbidden     = errors.New("not allowed")
	ErrNotFound      = errors.New("event not found")
	ErrConflict      = errors.New("event already exists")
	ErrAlreadyJoined = errors.New("already joined this event")
	ErrUnavailable   = errors.New("store unavailable")
	ErrRateLimited   = errors.New("too many requests")
	ErrImageUpload   = errors.New("image upload failed")
)
