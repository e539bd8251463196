package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/eventradar/notify-engine/internal/models"
	"github.com/eventradar/notify-engine/internal/repository"
)

// AttemptsHandler exposes the attempt ledger for one event.
type AttemptsHandler struct {
	ledger repository.LedgerRepository
	logger zerolog.Logger
}

func NewAttemptsHandler(ledger repository.LedgerRepository, logger zerolog.Logger) *AttemptsHandler {
	return &AttemptsHandler{
		ledger: ledger,
		logger: logger.With().Str("component", "attempts_handler").Logger(),
	}
}

type attemptsResponse struct {
	EventID   string                       `json:"event_id"`
	Delivered int                          `json:"delivered"`
	Failed    int                          `json:"failed"`
	Skipped   int                          `json:"skipped"`
	Attempts  []models.NotificationAttempt `json:"attempts"`
}

// ListByEvent returns every ledger row for the event, with outcome counts.
func (h *AttemptsHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventID"]
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "event ID is required")
		return
	}

	attempts, err := h.ledger.ListByEvent(r.Context(), eventID)
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", eventID).Msg("Failed to list attempts")
		writeError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}

	resp := attemptsResponse{EventID: eventID, Attempts: attempts}
	if resp.Attempts == nil {
		resp.Attempts = []models.NotificationAttempt{}
	}
	for _, attempt := range attempts {
		switch attempt.Outcome {
		case models.OutcomeDelivered:
			resp.Delivered++
		case models.OutcomeFailed:
			resp.Failed++
		case models.OutcomeSkippedDuplicate:
			resp.Skipped++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
