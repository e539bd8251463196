// Package dispatch fans a composed notification out to many recipients over
// a bounded worker pool. Each send is independent: one recipient's failure
// never aborts the rest of the batch, and every terminal outcome is written
// to the ledger before the fan-out is considered complete.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/eventradar/notify-engine/internal/compose"
	"github.com/eventradar/notify-engine/internal/gateway"
	"github.com/eventradar/notify-engine/internal/models"
	"github.com/eventradar/notify-engine/internal/producer"
	"github.com/eventradar/notify-engine/internal/repository"
)

// Target pairs an admitted recipient with the notification composed for them.
type Target struct {
	User         models.UserNotificationProfile `json:"user"`
	Notification compose.Notification           `json:"notification"`
}

// Result is the terminal state one target reached for one event.
type Result struct {
	UserID  string                `json:"user_id"`
	Outcome models.AttemptOutcome `json:"outcome"`
	Reason  string                `json:"reason,omitempty"`
}

// Summary aggregates fan-out results for logging and the attempts endpoint.
type Summary struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Options are the dispatch tunables; zero values take the engine defaults.
type Options struct {
	Concurrency    int
	PerSendTimeout time.Duration
	RetryCount     int
	RateLimit      float64 // sends per second, 0 = unlimited
	RetryBackoff   time.Duration
}

type Dispatcher struct {
	sender  gateway.Sender
	ledger  repository.LedgerRepository
	stale   producer.StaleTokenPublisher
	limiter *rate.Limiter
	opts    Options
	logger  zerolog.Logger
}

func NewDispatcher(sender gateway.Sender, ledger repository.LedgerRepository, stale producer.StaleTokenPublisher, opts Options, logger zerolog.Logger) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 25
	}
	if opts.PerSendTimeout <= 0 {
		opts.PerSendTimeout = 10 * time.Second
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Concurrency)
	}

	return &Dispatcher{
		sender:  sender,
		ledger:  ledger,
		stale:   stale,
		limiter: limiter,
		opts:    opts,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch sends to all targets concurrently and returns one result per
// target. The only error returned is context cancellation; per-recipient
// failures are reported in the results.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.Event, targets []Target) ([]Result, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	workers := d.opts.Concurrency
	if workers > len(targets) {
		workers = len(targets)
	}

	jobs := make(chan Target)
	resultCh := make(chan Result, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				resultCh <- d.sendOne(ctx, event, target)
			}
		}()
	}

feed:
	for _, target := range targets {
		select {
		case jobs <- target:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(resultCh)

	results := make([]Result, 0, len(targets))
	for result := range resultCh {
		results = append(results, result)
	}

	summary := Summarize(results)
	d.logger.Info().
		Str("event_id", event.ID).
		Int("targets", len(targets)).
		Int("delivered", summary.Delivered).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("fan-out complete")

	return results, ctx.Err()
}

func (d *Dispatcher) sendOne(ctx context.Context, event models.Event, target Target) Result {
	userID := target.User.UserID

	// Idempotency guard: a terminal row means a previous run (or a
	// concurrent one) already handled this pair.
	already, err := d.ledger.HasAttempt(ctx, event.ID, userID)
	if err != nil {
		d.logger.Error().Err(err).
			Str("event_id", event.ID).
			Str("user_id", userID).
			Msg("ledger check failed, not sending")
		return Result{UserID: userID, Outcome: models.OutcomeFailed, Reason: "ledger check failed"}
	}
	if already {
		return d.recordSkip(ctx, event, userID)
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return Result{UserID: userID, Outcome: models.OutcomeFailed, Reason: "cancelled before send"}
		}
	}

	sendErr := d.sendWithRetry(ctx, target)

	outcome := models.OutcomeDelivered
	reason := ""
	if sendErr != nil {
		outcome = models.OutcomeFailed
		reason = sendErr.Error()
		if errors.Is(sendErr, gateway.ErrInvalidToken) {
			d.signalStaleToken(ctx, target, reason)
		}
	}

	recordErr := d.ledger.Record(ctx, models.NotificationAttempt{
		EventID: event.ID,
		UserID:  userID,
		Outcome: outcome,
		Reason:  reason,
		SentAt:  time.Now().UTC(),
	})
	if errors.Is(recordErr, repository.ErrDuplicateAttempt) {
		// A concurrent run won the race; our outcome becomes a skip.
		return Result{UserID: userID, Outcome: models.OutcomeSkippedDuplicate}
	}
	if recordErr != nil {
		d.logger.Error().Err(recordErr).
			Str("event_id", event.ID).
			Str("user_id", userID).
			Str("outcome", string(outcome)).
			Msg("failed to write ledger row")
	}

	return Result{UserID: userID, Outcome: outcome, Reason: reason}
}

// sendWithRetry issues the gateway call with a bounded per-call deadline and
// at most RetryCount retries with backoff. Invalid tokens are never retried.
func (d *Dispatcher) sendWithRetry(ctx context.Context, target Target) error {
	var lastErr error
	for attempt := 0; attempt <= d.opts.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * d.opts.RetryBackoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.opts.PerSendTimeout)
		lastErr = d.sender.Send(sendCtx, target.User.PushDestination, target.Notification)
		cancel()

		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, gateway.ErrInvalidToken) {
			return lastErr
		}
	}
	return lastErr
}

func (d *Dispatcher) recordSkip(ctx context.Context, event models.Event, userID string) Result {
	err := d.ledger.Record(ctx, models.NotificationAttempt{
		EventID: event.ID,
		UserID:  userID,
		Outcome: models.OutcomeSkippedDuplicate,
		SentAt:  time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicateAttempt) {
		d.logger.Warn().Err(err).
			Str("event_id", event.ID).
			Str("user_id", userID).
			Msg("failed to write skip audit row")
	}
	return Result{UserID: userID, Outcome: models.OutcomeSkippedDuplicate}
}

func (d *Dispatcher) signalStaleToken(ctx context.Context, target Target, reason string) {
	if d.stale == nil {
		return
	}
	if err := d.stale.PublishStaleToken(ctx, target.User.UserID, target.User.PushDestination, reason); err != nil {
		d.logger.Warn().Err(err).
			Str("user_id", target.User.UserID).
			Msg("failed to publish stale token signal")
	}
}

// Summarize tallies results by outcome.
func Summarize(results []Result) Summary {
	var summary Summary
	for _, result := range results {
		switch result.Outcome {
		case models.OutcomeDelivered:
			summary.Delivered++
		case models.OutcomeFailed:
			summary.Failed++
		case models.OutcomeSkippedDuplicate:
			summary.Skipped++
		}
	}
	return summary
}
