package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"gatherhub/internal/domain"
)

const uniqueViolation = "23505"

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns an EventRepository backed by Postgres.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const eventColumns = `e.id, e.name, e.description, e.date_time, e.category, e.cover_image, e.location, e.created_by, u.name, e.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull, catNull, coverNull, creatorNull sql.NullString
	err := row.Scan(
		&e.ID, &e.Name, &descNull, &e.DateTime, &catNull, &coverNull,
		&e.Location, &e.CreatedBy, &creatorNull, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	if catNull.Valid {
		e.Category = &catNull.String
	}
	if coverNull.Valid {
		e.CoverImage = &coverNull.String
	}
	if creatorNull.Valid {
		e.CreatorName = creatorNull.String
	}
	return e, nil
}

// getForUpdate reads an event inside tx with a row lock so a concurrent
// update or delete of the same event serializes behind this transaction.
func getForUpdate(ctx context.Context, tx *sql.Tx, eventID string) (*domain.Event, error) {
	query := `
		SELECT id, name, description, date_time, category, cover_image, location, created_by, created_at
		FROM events
		WHERE id = $1
		FOR UPDATE
	`
	e := &domain.Event{}
	var descNull, catNull, coverNull sql.NullString
	err := tx.QueryRowContext(ctx, query, eventID).Scan(
		&e.ID, &e.Name, &descNull, &e.DateTime, &catNull, &coverNull,
		&e.Location, &e.CreatedBy, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	if catNull.Valid {
		e.Category = &catNull.String
	}
	if coverNull.Valid {
		e.CoverImage = &coverNull.String
	}
	return e, nil
}

func getWithCreator(ctx context.Context, tx *sql.Tx, eventID string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events e
		LEFT JOIN users u ON e.created_by = u.id
		WHERE e.id = $1
	`
	e, err := scanEvent(tx.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, data domain.EventData, ownerID string) (*domain.Event, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (name, description, date_time, category, cover_image, location, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id string
	err = tx.QueryRowContext(ctx, query,
		data.Name, data.Description, data.DateTime, data.Category,
		data.CoverImage, data.Location, ownerID,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}

	event, err := getWithCreator(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("read created event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return event, nil
}

func (r *eventRepository) Update(ctx context.Context, eventID string, data domain.EventData, actingUserID string) (*domain.Event, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getForUpdate(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read event: %w", err)
	}
	if current.CreatedBy != actingUserID {
		return nil, domain.ErrForbidden
	}

	query := `
		UPDATE events
		SET name = $1, description = $2, date_time = $3, category = $4, cover_image = $5, location = $6
		WHERE id = $7
	`
	if _, err := tx.ExecContext(ctx, query,
		data.Name, data.Description, data.DateTime, data.Category,
		data.CoverImage, data.Location, eventID,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	event, err := getWithCreator(ctx, tx, eventID)
	if err != nil {
		return nil, fmt.Errorf("read updated event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return event, nil
}

func (r *eventRepository) Delete(ctx context.Context, eventID, actingUserID string) (*domain.DeletedEvent, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getForUpdate(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read event: %w", err)
	}
	if current.CreatedBy != actingUserID {
		return nil, domain.ErrForbidden
	}

	// Attendee rows go first to keep referential integrity.
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendees WHERE event_id = $1`, eventID); err != nil {
		return nil, fmt.Errorf("delete attendees: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, eventID); err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &domain.DeletedEvent{
		ID:         current.ID,
		Name:       current.Name,
		CoverImage: current.CoverImage,
	}, nil
}

func (r *eventRepository) List(ctx context.Context, viewerUserID string) (*domain.EventList, error) {
	now := time.Now().UTC()

	upcoming, err := r.listByTime(ctx, `WHERE e.date_time >= $1 ORDER BY e.date_time ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	past, err := r.listByTime(ctx, `WHERE e.date_time < $1 ORDER BY e.date_time DESC`, now)
	if err != nil {
		return nil, fmt.Errorf("list past events: %w", err)
	}

	// One aggregated query for all counts instead of one per event.
	counts := make(map[string]int)
	rows, err := r.DB.QueryContext(ctx, `
		SELECT event_id, COUNT(*)
		FROM attendees
		GROUP BY event_id
	`)
	if err != nil {
		return nil, fmt.Errorf("count attendees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan attendee count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count attendees: %w", err)
	}

	joined := []string{}
	if viewerUserID != "" {
		rows, err := r.DB.QueryContext(ctx, `
			SELECT event_id
			FROM attendees
			WHERE user_id = $1
		`, viewerUserID)
		if err != nil {
			return nil, fmt.Errorf("list joined events: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, fmt.Errorf("scan joined event: %w", err)
			}
			joined = append(joined, id)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("list joined events: %w", err)
		}
	}

	return &domain.EventList{
		Upcoming:       upcoming,
		Past:           past,
		JoinedEventIDs: joined,
		AttendeeCounts: counts,
	}, nil
}

func (r *eventRepository) listByTime(ctx context.Context, clause string, now time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events e
		LEFT JOIN users u ON e.created_by = u.id
		` + clause
	rows, err := r.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
