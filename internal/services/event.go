package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gatherhub/internal/domain"
)

const coverImageFolder = "event_covers"

type eventService struct {
	eventRepo      domain.EventRepository
	attendeeRepo   domain.AttendeeRepository
	imageService   domain.ImageService
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewEventService creates an EventService with the given repositories and
// image service.
func NewEventService(
	eventRepo domain.EventRepository,
	attendeeRepo domain.AttendeeRepository,
	imageService domain.ImageService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		attendeeRepo:   attendeeRepo,
		imageService:   imageService,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// requireFullUser gates owner-capable mutations. Guests hold synthetic ids
// that are not present in the users table, so letting one through would also
// break the attendees foreign key; they are rejected up front.
func requireFullUser(sess *domain.Session) error {
	if sess == nil || sess.UserID == "" {
		return domain.ErrUnauthorized
	}
	if sess.IsGuest() {
		return domain.ErrForbidden
	}
	return nil
}

// resolveCoverImage turns a raw image payload into a stored URL before any
// row is written. Already-stored URLs pass through untouched.
func (s *eventService) resolveCoverImage(ctx context.Context, data *domain.EventData) error {
	if data.CoverImage == nil || !strings.HasPrefix(*data.CoverImage, "data:") {
		return nil
	}
	url, err := s.imageService.Upload(ctx, *data.CoverImage, coverImageFolder)
	if err != nil {
		s.logger.Error("cover image upload failed", "error", err)
		return domain.ErrImageUpload
	}
	if url == "" {
		data.CoverImage = nil
		return nil
	}
	data.CoverImage = &url
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, sess *domain.Session, data domain.EventData) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireFullUser(sess); err != nil {
		return nil, err
	}
	if err := s.resolveCoverImage(ctx, &data); err != nil {
		return nil, err
	}
	event, err := s.eventRepo.Create(ctx, data, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, sess *domain.Session, eventID string, data domain.EventData) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireFullUser(sess); err != nil {
		return nil, err
	}
	if err := s.resolveCoverImage(ctx, &data); err != nil {
		return nil, err
	}
	event, err := s.eventRepo.Update(ctx, eventID, data, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, sess *domain.Session, eventID string) (*domain.DeletedEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireFullUser(sess); err != nil {
		return nil, err
	}
	deleted, err := s.eventRepo.Delete(ctx, eventID, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("delete event: %w", err)
	}

	// Best effort: a failed image cleanup must not fail the deletion.
	if deleted.CoverImage != nil && *deleted.CoverImage != "" {
		if err := s.imageService.Delete(ctx, *deleted.CoverImage); err != nil {
			s.logger.Warn("cover image cleanup failed",
				"event_id", deleted.ID,
				"url", *deleted.CoverImage,
				"error", err,
			)
		}
	}
	return deleted, nil
}

func (s *eventService) JoinEvent(ctx context.Context, sess *domain.Session, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireFullUser(sess); err != nil {
		return 0, err
	}
	count, err := s.attendeeRepo.Join(ctx, eventID, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyJoined) {
			return 0, err
		}
		return 0, fmt.Errorf("join event: %w", err)
	}
	return count, nil
}

func (s *eventService) LeaveEvent(ctx context.Context, sess *domain.Session, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireFullUser(sess); err != nil {
		return 0, err
	}
	count, err := s.attendeeRepo.Leave(ctx, eventID, sess.UserID)
	if err != nil {
		return 0, fmt.Errorf("leave event: %w", err)
	}
	return count, nil
}

func (s *eventService) ListEvents(ctx context.Context, viewerUserID string) (*domain.EventList, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	list, err := s.eventRepo.List(ctx, viewerUserID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return list, nil
}
