package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gatherhub/internal/domain"
)

type attendeeRepository struct {
	DB *sql.DB
}

// NewAttendeeRepository returns an AttendeeRepository backed by Postgres.
func NewAttendeeRepository(db *sql.DB) domain.AttendeeRepository {
	return &attendeeRepository{
		DB: db,
	}
}

// Join inserts the attendee row and recomputes the count inside one
// transaction. The UNIQUE(user_id, event_id) constraint makes a second join
// by the same user fail instead of inflating the count.
func (r *attendeeRepository) Join(ctx context.Context, eventID, userID string) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return 0, domain.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO attendees (event_id, user_id) VALUES ($1, $2)`, eventID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrAlreadyJoined
		}
		return 0, fmt.Errorf("insert attendee: %w", err)
	}

	count, err := countAttendees(ctx, tx, eventID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

// Leave deletes the attendee row if present and recomputes the count in the
// same transaction. Leaving an event never joined is not an error; the
// returned count still reflects stored rows.
func (r *attendeeRepository) Leave(ctx context.Context, eventID, userID string) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM attendees WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete attendee: %w", err)
	}

	count, err := countAttendees(ctx, tx, eventID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

func countAttendees(ctx context.Context, tx *sql.Tx, eventID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendees WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return count, nil
}
