package matching

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/eventradar/notify-engine/internal/models"
	"github.com/eventradar/notify-engine/internal/repository"
)

// AdmissionController gates each eligible candidate behind two independent
// throttles: a rolling 24h delivery quota and a local-time delivery window.
// Rejections write no ledger rows; the user may be matched by a future event.
type AdmissionController struct {
	ledger     repository.LedgerRepository
	dailyLimit int
	logger     zerolog.Logger
}

func NewAdmissionController(ledger repository.LedgerRepository, dailyLimit int, logger zerolog.Logger) *AdmissionController {
	if dailyLimit <= 0 {
		dailyLimit = 3
	}
	return &AdmissionController{
		ledger:     ledger,
		dailyLimit: dailyLimit,
		logger:     logger.With().Str("component", "admission_controller").Logger(),
	}
}

// Admit reports whether the user may receive a notification right now.
// Ledger read failures are fatal for the matching run, matching the
// directory-lookup error policy.
func (a *AdmissionController) Admit(ctx context.Context, user models.UserNotificationProfile, nowUTC time.Time) (bool, error) {
	count, err := a.ledger.CountDeliveredSince(ctx, user.UserID, nowUTC.Add(-24*time.Hour))
	if err != nil {
		return false, errors.Wrap(err, "count delivered notifications")
	}
	if count >= a.dailyLimit {
		a.logger.Debug().
			Str("user_id", user.UserID).
			Int("delivered_24h", count).
			Int("daily_limit", a.dailyLimit).
			Msg("quota exceeded, not admitted")
		return false, nil
	}

	return a.inWindow(user, nowUTC), nil
}

func (a *AdmissionController) inWindow(user models.UserNotificationProfile, nowUTC time.Time) bool {
	// Midnight-wrapping windows (start >= end) are unsupported; such users
	// are never admitted rather than silently receiving pushes at odd hours.
	if user.WindowStartHour >= user.WindowEndHour {
		a.logger.Warn().
			Str("user_id", user.UserID).
			Int("window_start", user.WindowStartHour).
			Int("window_end", user.WindowEndHour).
			Msg("unsupported delivery window, not admitted")
		return false
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		a.logger.Warn().
			Str("user_id", user.UserID).
			Str("timezone", user.Timezone).
			Msg("unknown timezone, falling back to UTC")
		loc = time.UTC
	}

	localHour := nowUTC.In(loc).Hour()
	return user.WindowStartHour <= localHour && localHour < user.WindowEndHour
}
