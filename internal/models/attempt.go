package models

import "time"

type AttemptOutcome string

const (
	OutcomeDelivered        AttemptOutcome = "delivered"
	OutcomeFailed           AttemptOutcome = "failed"
	OutcomeSkippedDuplicate AttemptOutcome = "skipped_duplicate"
)

// NotificationAttempt is an append-only ledger row. For a given
// (EventID, UserID) pair at most one delivered or failed row exists; that
// pair is the idempotency key that prevents duplicate pushes when the
// matching job for an event is re-triggered.
type NotificationAttempt struct {
	ID      string         `json:"id" db:"id"`
	EventID string         `json:"event_id" db:"event_id"`
	UserID  string         `json:"user_id" db:"user_id"`
	SentAt  time.Time      `json:"sent_at" db:"sent_at"`
	Outcome AttemptOutcome `json:"outcome" db:"outcome"`
	Reason  string         `json:"reason,omitempty" db:"reason"`
}

// Terminal reports whether the outcome consumes the idempotency key.
// Skipped duplicates are audit entries and may repeat.
func (o AttemptOutcome) Terminal() bool {
	return o == OutcomeDelivered || o == OutcomeFailed
}
