package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/eventradar/notify-engine/internal/models"
)

// ErrDuplicateAttempt is returned by Record when a delivered or failed row
// already exists for the (eventID, userID) pair. Callers treat it as
// "already attempted", not as a failure.
var ErrDuplicateAttempt = errors.New("notification attempt already recorded")

// uniqueViolation is the Postgres error code raised when the partial unique
// index on (event_id, user_id) rejects a second terminal row.
const uniqueViolation = "23505"

// LedgerRepository is the append-only log of delivery attempts. It is the
// only shared mutable state in the engine; concurrency safety comes from the
// store's unique constraint, not from locks in Go.
type LedgerRepository interface {
	HasAttempt(ctx context.Context, eventID, userID string) (bool, error)
	CountDeliveredSince(ctx context.Context, userID string, since time.Time) (int, error)
	Record(ctx context.Context, attempt models.NotificationAttempt) error
	ListByEvent(ctx context.Context, eventID string) ([]models.NotificationAttempt, error)
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// HasAttempt reports whether a terminal (delivered or failed) row exists for
// the pair. Skipped-duplicate audit rows are ignored.
func (r *ledgerRepository) HasAttempt(ctx context.Context, eventID, userID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM notify.notification_attempts
			WHERE event_id = $1 AND user_id = $2 AND outcome IN ('delivered', 'failed')
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CountDeliveredSince counts delivered rows for the user in the rolling
// window starting at since. Used for the daily quota check.
func (r *ledgerRepository) CountDeliveredSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM notify.notification_attempts
		WHERE user_id = $1 AND outcome = 'delivered' AND sent_at >= $2
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Record appends an attempt row. Concurrent writers racing on the same
// terminal (event_id, user_id) pair have exactly one winner; the loser gets
// ErrDuplicateAttempt.
func (r *ledgerRepository) Record(ctx context.Context, attempt models.NotificationAttempt) error {
	const query = `
		INSERT INTO notify.notification_attempts (id, event_id, user_id, outcome, reason, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := attempt.ID
	if id == "" {
		id = uuid.NewString()
	}
	sentAt := attempt.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	var reason interface{}
	if attempt.Reason != "" {
		reason = attempt.Reason
	}

	_, err := r.db.ExecContext(ctx, query, id, attempt.EventID, attempt.UserID, attempt.Outcome, reason, sentAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

func (r *ledgerRepository) ListByEvent(ctx context.Context, eventID string) ([]models.NotificationAttempt, error) {
	const query = `
		SELECT id, event_id, user_id, outcome, reason, sent_at
		FROM notify.notification_attempts
		WHERE event_id = $1
		ORDER BY sent_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.NotificationAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func scanAttempt(scanner interface {
	Scan(dest ...interface{}) error
}) (models.NotificationAttempt, error) {
	var (
		attempt models.NotificationAttempt
		reason  sql.NullString
	)
	if err := scanner.Scan(
		&attempt.ID,
		&attempt.EventID,
		&attempt.UserID,
		&attempt.Outcome,
		&reason,
		&attempt.SentAt,
	); err != nil {
		return models.NotificationAttempt{}, err
	}
	if reason.Valid {
		attempt.Reason = reason.String
	}
	return attempt, nil
}
