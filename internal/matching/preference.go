package matching

import (
	"github.com/rs/zerolog"

	"github.com/eventradar/notify-engine/internal/models"
)

// PreferenceFilter drops candidates who cannot or do not want to receive a
// push for the event. Users with an empty preferred-category set are
// included for every category; that default-inclusive policy is deliberate
// and changing it is a breaking behavior change.
type PreferenceFilter struct {
	logger zerolog.Logger
}

func NewPreferenceFilter(logger zerolog.Logger) *PreferenceFilter {
	return &PreferenceFilter{
		logger: logger.With().Str("component", "preference_filter").Logger(),
	}
}

func (f *PreferenceFilter) Filter(candidates []models.UserNotificationProfile, event models.Event) []models.UserNotificationProfile {
	eligible := make([]models.UserNotificationProfile, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.Reachable() {
			continue
		}
		if !candidate.NotificationsEnabled {
			continue
		}
		if !candidate.WantsCategory(event.Category) {
			continue
		}
		eligible = append(eligible, candidate)
	}

	f.logger.Debug().
		Str("event_id", event.ID).
		Int("candidates", len(candidates)).
		Int("eligible", len(eligible)).
		Msg("preference filter applied")

	return eligible
}
