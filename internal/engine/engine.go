// Package engine orchestrates one matching run for one event: candidate
// lookup, preference filtering, admission control, composition, and fan-out.
// Runs are independent across events; the ledger is the only shared state,
// which makes re-running the same event safe.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventradar/notify-engine/internal/compose"
	"github.com/eventradar/notify-engine/internal/dispatch"
	"github.com/eventradar/notify-engine/internal/geo"
	"github.com/eventradar/notify-engine/internal/matching"
	"github.com/eventradar/notify-engine/internal/models"
)

// Summary describes what one matching run did, for logging and callers.
type Summary struct {
	EventID    string `json:"event_id"`
	Candidates int    `json:"candidates"`
	Eligible   int    `json:"eligible"`
	Admitted   int    `json:"admitted"`
	Delivered  int    `json:"delivered"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
}

type Engine struct {
	finder     *matching.CandidateFinder
	prefs      *matching.PreferenceFilter
	admission  *matching.AdmissionController
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger

	// now is swappable in tests; defaults to time.Now in UTC.
	now func() time.Time
}

func New(finder *matching.CandidateFinder, prefs *matching.PreferenceFilter, admission *matching.AdmissionController, dispatcher *dispatch.Dispatcher, logger zerolog.Logger) *Engine {
	return &Engine{
		finder:     finder,
		prefs:      prefs,
		admission:  admission,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "engine").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Match runs the read-only half of the pipeline and returns the dispatch
// targets for the admitted users. Everything up to here touches no state, so
// a failed run can be retried as a unit.
func (e *Engine) Match(ctx context.Context, event models.Event) ([]dispatch.Target, Summary, error) {
	summary := Summary{EventID: event.ID}

	candidates, err := e.finder.Find(ctx, event)
	if err != nil {
		return nil, summary, err
	}
	summary.Candidates = len(candidates)

	eligible := e.prefs.Filter(candidates, event)
	summary.Eligible = len(eligible)

	nowUTC := e.now()
	var targets []dispatch.Target
	for _, user := range eligible {
		admitted, err := e.admission.Admit(ctx, user, nowUTC)
		if err != nil {
			return nil, summary, err
		}
		if !admitted {
			continue
		}

		distanceKm, distanceKnown := geo.Between(event.Coordinates, user.Coordinates)
		targets = append(targets, dispatch.Target{
			User:         user,
			Notification: compose.Build(event, user, distanceKm, distanceKnown),
		})
	}
	summary.Admitted = len(targets)

	e.logger.Info().
		Str("event_id", event.ID).
		Int("candidates", summary.Candidates).
		Int("eligible", summary.Eligible).
		Int("admitted", summary.Admitted).
		Msg("matching complete")

	return targets, summary, nil
}

// Dispatch fans out to the given targets and folds the outcomes into the
// summary.
func (e *Engine) Dispatch(ctx context.Context, event models.Event, targets []dispatch.Target, summary Summary) (Summary, error) {
	results, err := e.dispatcher.Dispatch(ctx, event, targets)
	outcome := dispatch.Summarize(results)
	summary.Delivered = outcome.Delivered
	summary.Failed = outcome.Failed
	summary.Skipped = outcome.Skipped
	return summary, err
}

// Run executes the full pipeline for one event.
func (e *Engine) Run(ctx context.Context, event models.Event) (Summary, error) {
	targets, summary, err := e.Match(ctx, event)
	if err != nil {
		return summary, err
	}
	if len(targets) == 0 {
		return summary, nil
	}
	return e.Dispatch(ctx, event, targets, summary)
}
