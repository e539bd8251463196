package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/eventradar/notify-engine/internal/models"
)

func newLedgerMock(t *testing.T) (LedgerRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewLedgerRepository(db), mock, func() { db.Close() }
}

func TestLedgerRepository_Record(t *testing.T) {
	attempt := models.NotificationAttempt{
		ID:      "attempt-1",
		EventID: "event-1",
		UserID:  "user-1",
		Outcome: models.OutcomeDelivered,
		SentAt:  time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "successful insert",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO notify.notification_attempts").
					WithArgs(attempt.ID, attempt.EventID, attempt.UserID, attempt.Outcome, nil, attempt.SentAt).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unique violation maps to ErrDuplicateAttempt",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO notify.notification_attempts").
					WithArgs(attempt.ID, attempt.EventID, attempt.UserID, attempt.Outcome, nil, attempt.SentAt).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: ErrDuplicateAttempt,
		},
		{
			name: "other database errors pass through",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO notify.notification_attempts").
					WithArgs(attempt.ID, attempt.EventID, attempt.UserID, attempt.Outcome, nil, attempt.SentAt).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, closeDB := newLedgerMock(t)
			defer closeDB()
			tt.setupMock(mock)

			err := repo.Record(context.Background(), attempt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Record() error = %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("mock expectations were not met: %v", err)
			}
		})
	}
}

func TestLedgerRepository_Record_FillsDefaults(t *testing.T) {
	repo, mock, closeDB := newLedgerMock(t)
	defer closeDB()

	// ID and sent_at are generated when absent.
	mock.ExpectExec("INSERT INTO notify.notification_attempts").
		WithArgs(sqlmock.AnyArg(), "event-1", "user-1", models.OutcomeFailed, "gateway timeout", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Record(context.Background(), models.NotificationAttempt{
		EventID: "event-1",
		UserID:  "user-1",
		Outcome: models.OutcomeFailed,
		Reason:  "gateway timeout",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("mock expectations were not met: %v", err)
	}
}

func TestLedgerRepository_HasAttempt(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
	}{
		{name: "terminal row exists", exists: true},
		{name: "no terminal row", exists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, closeDB := newLedgerMock(t)
			defer closeDB()

			mock.ExpectQuery("SELECT EXISTS").
				WithArgs("event-1", "user-1").
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			got, err := repo.HasAttempt(context.Background(), "event-1", "user-1")
			if err != nil {
				t.Fatalf("HasAttempt() error = %v", err)
			}
			if got != tt.exists {
				t.Errorf("HasAttempt() = %v, want %v", got, tt.exists)
			}
		})
	}
}

func TestLedgerRepository_CountDeliveredSince(t *testing.T) {
	repo, mock, closeDB := newLedgerMock(t)
	defer closeDB()

	since := time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountDeliveredSince(context.Background(), "user-1", since)
	if err != nil {
		t.Fatalf("CountDeliveredSince() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CountDeliveredSince() = %d, want 3", count)
	}
}

func TestLedgerRepository_ListByEvent(t *testing.T) {
	repo, mock, closeDB := newLedgerMock(t)
	defer closeDB()

	sentAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "event_id", "user_id", "outcome", "reason", "sent_at"}).
		AddRow("a1", "event-1", "user-1", "delivered", nil, sentAt).
		AddRow("a2", "event-1", "user-2", "failed", "invalid push token", sentAt.Add(time.Second))

	mock.ExpectQuery("SELECT id, event_id, user_id, outcome, reason, sent_at").
		WithArgs("event-1").
		WillReturnRows(rows)

	attempts, err := repo.ListByEvent(context.Background(), "event-1")
	if err != nil {
		t.Fatalf("ListByEvent() error = %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("ListByEvent() returned %d rows, want 2", len(attempts))
	}
	if attempts[0].Outcome != models.OutcomeDelivered || attempts[0].Reason != "" {
		t.Errorf("first row = %+v, want delivered with no reason", attempts[0])
	}
	if attempts[1].Outcome != models.OutcomeFailed || attempts[1].Reason != "invalid push token" {
		t.Errorf("second row = %+v, want failed with reason", attempts[1])
	}
}
