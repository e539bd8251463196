package workflows

import (
	"go.temporal.io/sdk/workflow"

	"github.com/eventradar/notify-engine/internal/engine"
	"github.com/eventradar/notify-engine/internal/models"
	"github.com/eventradar/notify-engine/internal/temporal"
	"github.com/eventradar/notify-engine/internal/temporal/activities"
)

// MatchingWorkflow runs one matching job for one event. The workflow ID is
// derived from the event ID, so duplicate triggers collide here; even when
// they do not, the ledger makes the dispatch step idempotent.
func MatchingWorkflow(ctx workflow.Context, params temporal.MatchParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting matching workflow", "EventID", params.EventID)

	// Proxy; the implementation is registered on the worker.
	var a *activities.Activities

	var event models.Event
	if err := workflow.ExecuteActivity(ctx, a.FetchEventActivity, params.EventID).Get(ctx, &event); err != nil {
		logger.Error("Failed to fetch event.", "error", err)
		return err
	}

	var matched activities.MatchResult
	if err := workflow.ExecuteActivity(ctx, a.MatchCandidatesActivity, event).Get(ctx, &matched); err != nil {
		logger.Error("Matching failed.", "error", err)
		return err
	}

	if len(matched.Targets) == 0 {
		logger.Info("No admitted recipients, nothing to dispatch.", "EventID", params.EventID)
		return nil
	}

	var summary engine.Summary
	if err := workflow.ExecuteActivity(ctx, a.DispatchActivity, event, matched).Get(ctx, &summary); err != nil {
		logger.Error("Dispatch failed.", "error", err)
		return err
	}

	logger.Info("Matching workflow completed.",
		"EventID", params.EventID,
		"Delivered", summary.Delivered,
		"Failed", summary.Failed,
		"Skipped", summary.Skipped,
	)
	return nil
}
