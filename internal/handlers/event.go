package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"

	"github.com/eventradar/notify-engine/internal/models"
	"github.com/eventradar/notify-engine/internal/repository"
	"github.com/eventradar/notify-engine/internal/temporal"
	"github.com/eventradar/notify-engine/internal/temporal/workflows"
)

// EventHandler accepts new events and starts a matching run for each one.
type EventHandler struct {
	events         repository.EventRepository
	temporalClient tc.Client
	logger         zerolog.Logger
}

func NewEventHandler(events repository.EventRepository, temporalClient tc.Client, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		events:         events,
		temporalClient: temporalClient,
		logger:         logger.With().Str("component", "event_handler").Logger(),
	}
}

// Create persists the event and kicks off the matching workflow. The
// workflow ID is derived from the event ID, so posting the same event
// twice does not start a second run.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if event.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if event.OccursAt.IsZero() {
		writeError(w, http.StatusBadRequest, "occurs_at is required")
		return
	}
	if !models.IsKnownCategory(event.Category) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", event.Category))
		return
	}

	created, err := h.events.Create(r.Context(), event)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to persist event")
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	options := tc.StartWorkflowOptions{
		ID:        temporal.MatchWorkflowIDPrefix + created.ID,
		TaskQueue: temporal.TaskQueueName,
	}
	run, err := h.temporalClient.ExecuteWorkflow(r.Context(), options, workflows.MatchingWorkflow, temporal.MatchParams{EventID: created.ID})
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", created.ID).Msg("Failed to start matching workflow")
		writeError(w, http.StatusInternalServerError, "failed to start matching")
		return
	}

	h.logger.Info().
		Str("event_id", created.ID).
		Str("workflow_id", run.GetID()).
		Msg("Matching workflow started")

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"event":       created,
		"workflow_id": run.GetID(),
	})
}
