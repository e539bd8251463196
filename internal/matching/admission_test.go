package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventradar/notify-engine/internal/models"
)

// quotaLedger implements repository.LedgerRepository with canned delivery
// timestamps per user; only CountDeliveredSince matters for admission.
type quotaLedger struct {
	deliveredAt map[string][]time.Time
	countErr    error
}

func (l *quotaLedger) CountDeliveredSince(_ context.Context, userID string, since time.Time) (int, error) {
	if l.countErr != nil {
		return 0, l.countErr
	}
	count := 0
	for _, at := range l.deliveredAt[userID] {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (l *quotaLedger) HasAttempt(context.Context, string, string) (bool, error) { return false, nil }
func (l *quotaLedger) Record(context.Context, models.NotificationAttempt) error { return nil }
func (l *quotaLedger) ListByEvent(context.Context, string) ([]models.NotificationAttempt, error) {
	return nil, nil
}

func utcUser(start, end int) models.UserNotificationProfile {
	return models.UserNotificationProfile{
		UserID:          "user-1",
		WindowStartHour: start,
		WindowEndHour:   end,
		Timezone:        "UTC",
	}
}

func TestAdmissionController_Quota(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		deliveredAt []time.Time
		want        bool
	}{
		{
			name: "under quota",
			deliveredAt: []time.Time{
				now.Add(-2 * time.Hour),
				now.Add(-20 * time.Hour),
			},
			want: true,
		},
		{
			name: "at quota is rejected",
			deliveredAt: []time.Time{
				now.Add(-2 * time.Hour),
				now.Add(-10 * time.Hour),
				now.Add(-20 * time.Hour),
			},
			want: false,
		},
		{
			name: "delivery aged past 24h frees a quota slot",
			deliveredAt: []time.Time{
				now.Add(-2 * time.Hour),
				now.Add(-10 * time.Hour),
				now.Add(-25 * time.Hour), // outside the rolling window
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &quotaLedger{deliveredAt: map[string][]time.Time{"user-1": tt.deliveredAt}}
			controller := NewAdmissionController(ledger, 3, zerolog.Nop())

			admitted, err := controller.Admit(context.Background(), utcUser(8, 22), now)
			if err != nil {
				t.Fatalf("Admit() error = %v", err)
			}
			if admitted != tt.want {
				t.Errorf("Admit() = %v, want %v", admitted, tt.want)
			}
		})
	}
}

func TestAdmissionController_Window(t *testing.T) {
	ledger := &quotaLedger{}

	tests := []struct {
		name     string
		user     models.UserNotificationProfile
		nowUTC   time.Time
		admitted bool
	}{
		{
			name:     "inside window",
			user:     utcUser(8, 22),
			nowUTC:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
			admitted: true,
		},
		{
			name:     "before window",
			user:     utcUser(8, 22),
			nowUTC:   time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC),
			admitted: false,
		},
		{
			name:     "window start is inclusive",
			user:     utcUser(8, 22),
			nowUTC:   time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
			admitted: true,
		},
		{
			name:     "window end is exclusive",
			user:     utcUser(8, 22),
			nowUTC:   time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC),
			admitted: false,
		},
		{
			name: "window evaluated in the user's timezone",
			user: models.UserNotificationProfile{
				UserID:          "user-1",
				WindowStartHour: 8,
				WindowEndHour:   22,
				Timezone:        "America/New_York", // UTC-5 in March (EST until DST)
			},
			// 23:00 UTC is 18:00 or 19:00 in New York, inside the window either way.
			nowUTC:   time.Date(2026, 1, 14, 23, 0, 0, 0, time.UTC),
			admitted: true,
		},
		{
			name: "unknown timezone falls back to UTC",
			user: models.UserNotificationProfile{
				UserID:          "user-1",
				WindowStartHour: 8,
				WindowEndHour:   22,
				Timezone:        "Not/AZone",
			},
			nowUTC:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
			admitted: true,
		},
		{
			name:     "midnight-wrapping window is unsupported",
			user:     utcUser(22, 6),
			nowUTC:   time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC),
			admitted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := NewAdmissionController(ledger, 3, zerolog.Nop())
			admitted, err := controller.Admit(context.Background(), tt.user, tt.nowUTC)
			if err != nil {
				t.Fatalf("Admit() error = %v", err)
			}
			if admitted != tt.admitted {
				t.Errorf("Admit() = %v, want %v", admitted, tt.admitted)
			}
		})
	}
}

func TestAdmissionController_LedgerErrorIsFatal(t *testing.T) {
	readErr := errors.New("ledger unavailable")
	controller := NewAdmissionController(&quotaLedger{countErr: readErr}, 3, zerolog.Nop())

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if _, err := controller.Admit(context.Background(), utcUser(8, 22), now); !errors.Is(err, readErr) {
		t.Fatalf("Admit() error = %v, want wrapped %v", err, readErr)
	}
}
