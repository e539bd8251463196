package temporal

import "time"

// TaskQueueName is the Temporal task queue all matching workflows run on.
const TaskQueueName = "NOTIFY_MATCHING"

// MatchWorkflowIDPrefix prefixes workflow IDs. Combined with the event ID it
// gives the at-most-once trigger per event: a second start for the same
// event collides with the running workflow instead of matching twice.
const MatchWorkflowIDPrefix = "event-match-"

// DefaultActivityTimeout bounds each matching activity. Dispatch fan-out for
// a large city fits comfortably within this.
const DefaultActivityTimeout = 2 * time.Minute

// MatchParams is the input to MatchingWorkflow.
type MatchParams struct {
	EventID string
}
