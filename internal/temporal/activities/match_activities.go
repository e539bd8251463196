package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/eventradar/notify-engine/internal/dispatch"
	"github.com/eventradar/notify-engine/internal/engine"
	"github.com/eventradar/notify-engine/internal/models"
	"github.com/eventradar/notify-engine/internal/repository"
)

// Activities holds the dependencies the matching activities run against.
// The implementation lives on the worker; workflows only reference the
// method names.
type Activities struct {
	Events repository.EventRepository
	Engine *engine.Engine
}

// MatchResult carries the admitted targets from matching to dispatch.
type MatchResult struct {
	Targets []dispatch.Target
	Summary engine.Summary
}

// FetchEventActivity loads the immutable event record a re-triggered
// workflow re-reads.
func (a *Activities) FetchEventActivity(ctx context.Context, eventID string) (models.Event, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching event for matching", "eventID", eventID)

	event, err := a.Events.GetByID(ctx, eventID)
	if err != nil {
		logger.Error("Failed to fetch event", "eventID", eventID, "error", err)
		return models.Event{}, err
	}
	return event, nil
}

// MatchCandidatesActivity runs the read-only half of the pipeline. It is
// safe to retry as a unit: nothing up to admission writes state.
func (a *Activities) MatchCandidatesActivity(ctx context.Context, event models.Event) (MatchResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Matching candidates", "eventID", event.ID)

	targets, summary, err := a.Engine.Match(ctx, event)
	if err != nil {
		logger.Error("Matching failed", "eventID", event.ID, "error", err)
		return MatchResult{}, err
	}
	return MatchResult{Targets: targets, Summary: summary}, nil
}

// DispatchActivity fans out to the admitted targets. Retries are safe: the
// ledger's idempotency key turns re-sends into skips.
func (a *Activities) DispatchActivity(ctx context.Context, event models.Event, result MatchResult) (engine.Summary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Dispatching notifications", "eventID", event.ID, "targets", len(result.Targets))

	summary, err := a.Engine.Dispatch(ctx, event, result.Targets, result.Summary)
	if err != nil {
		logger.Error("Dispatch interrupted", "eventID", event.ID, "error", err)
		return summary, err
	}
	return summary, nil
}
