// Package matching narrows the user population for an event down to the set
// of admitted notification recipients: geographic candidates first, then
// preference filtering, then per-user admission control.
package matching

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/eventradar/notify-engine/internal/models"
	"github.com/eventradar/notify-engine/internal/repository"
)

// CandidateFinder returns users located in the same named locality as the
// event or within the configured radius of its coordinates. This is a
// broad-recall filter; narrowing happens downstream.
type CandidateFinder struct {
	directory repository.UserDirectory
	radiusKm  float64
	logger    zerolog.Logger
}

func NewCandidateFinder(directory repository.UserDirectory, radiusKm float64, logger zerolog.Logger) *CandidateFinder {
	if radiusKm <= 0 {
		radiusKm = 20
	}
	return &CandidateFinder{
		directory: directory,
		radiusKm:  radiusKm,
		logger:    logger.With().Str("component", "candidate_finder").Logger(),
	}
}

// Find returns the candidate set for the event. An event with neither city
// nor coordinates is un-matchable and yields an empty set, not an error.
// Directory lookup failures are fatal for the matching run.
func (f *CandidateFinder) Find(ctx context.Context, event models.Event) ([]models.UserNotificationProfile, error) {
	if !event.HasLocation() {
		f.logger.Warn().
			Str("event_id", event.ID).
			Msg("event has neither city nor coordinates, no candidates")
		return nil, nil
	}

	seen := make(map[string]struct{})
	var candidates []models.UserNotificationProfile

	add := func(profiles []models.UserNotificationProfile) {
		for _, p := range profiles {
			if _, ok := seen[p.UserID]; ok {
				continue
			}
			seen[p.UserID] = struct{}{}
			candidates = append(candidates, p)
		}
	}

	if city := strings.TrimSpace(event.CityName); city != "" {
		byCity, err := f.directory.FindByCity(ctx, city)
		if err != nil {
			return nil, errors.Wrap(err, "find candidates by city")
		}
		add(byCity)
	}

	if event.Coordinates != nil {
		byRadius, err := f.directory.FindWithinRadius(ctx, event.Coordinates.Latitude, event.Coordinates.Longitude, f.radiusKm)
		if err != nil {
			return nil, errors.Wrap(err, "find candidates within radius")
		}
		add(byRadius)
	}

	f.logger.Debug().
		Str("event_id", event.ID).
		Int("candidates", len(candidates)).
		Float64("radius_km", f.radiusKm).
		Msg("candidate lookup complete")

	return candidates, nil
}
