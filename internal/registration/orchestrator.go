// Package registration orchestrates automated event registration: strategy
// dispatch, payment safety, retries, persistence, and event status
// transitions.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nminhdao/registrar/internal/browser"
	"github.com/nminhdao/registrar/internal/core/domain"
	"github.com/nminhdao/registrar/internal/infra/storage"
	"github.com/nminhdao/registrar/internal/registration/metrics"
	"github.com/nminhdao/registrar/internal/registration/retry"
	"github.com/nminhdao/registrar/internal/registration/safety"
	"github.com/nminhdao/registrar/internal/registration/strategy"
)

// Config tunes orchestrator behavior.
type Config struct {
	// MaxConcurrent caps parallel registrations within one batch. Browser
	// sessions are memory-heavy; keep this small.
	MaxConcurrent int

	// NavTimeout bounds each page navigation.
	NavTimeout time.Duration

	// StepTimeout bounds individual form interactions.
	StepTimeout time.Duration
}

// DefaultConfig matches a two-page browser budget.
var DefaultConfig = Config{
	MaxConcurrent: 2,
	NavTimeout:    20 * time.Second,
	StepTimeout:   8 * time.Second,
}

// BatchSummary reports one ProcessApprovedEvents run.
type BatchSummary struct {
	Processed  int `json:"processed"`
	Registered int `json:"registered"`
	Failed     int `json:"failed"`
}

// Orchestrator is the registration subsystem's entry point. It resolves a
// strategy per event, enforces the payment guard, executes through the retry
// engine, persists outcomes, and drives event status transitions.
type Orchestrator struct {
	events   storage.EventRepository
	attempts storage.AttemptRepository
	engine   *retry.Engine
	registry *strategy.Registry
	browser  browser.Browser
	profile  *domain.FamilyProfile
	cfg      Config
	log      *slog.Logger

	// inflight enforces single-flight per event: attempts for the same event
	// are never concurrent.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewOrchestrator wires the orchestrator with its collaborators.
func NewOrchestrator(
	events storage.EventRepository,
	attempts storage.AttemptRepository,
	engine *retry.Engine,
	registry *strategy.Registry,
	b browser.Browser,
	profile *domain.FamilyProfile,
	cfg Config,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig.MaxConcurrent
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = DefaultConfig.NavTimeout
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultConfig.StepTimeout
	}
	return &Orchestrator{
		events:   events,
		attempts: attempts,
		engine:   engine,
		registry: registry,
		browser:  b,
		profile:  profile,
		cfg:      cfg,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// RegisterForEvent attempts unattended registration for one event. It always
// returns a structured attempt; errors never escape. The cost check runs
// before any browser interaction, and a non-zero cost is refused regardless
// of upstream state.
func (o *Orchestrator) RegisterForEvent(
	ctx context.Context,
	event *domain.Event,
) *domain.RegistrationAttempt {
	if event.Status != domain.EventStatusApproved {
		return o.rejected(event, "generic",
			fmt.Sprintf("event is %s, only approved events can be registered", event.Status))
	}

	if err := safety.AssertFree(event); err != nil {
		o.log.Error("payment safety violation",
			"event_id", event.ID,
			"cost", event.Cost,
			"violation", err,
		)
		attempt := o.rejected(event, "generic", err.Error())
		attempt.SafetyViolation = true
		attempt.RequiresManual = true
		metrics.SafetyViolationsTotal.WithLabelValues("generic", "cost").Inc()
		o.persistOutcome(ctx, event, attempt)
		return attempt
	}

	if !o.acquire(event.ID) {
		return o.rejected(event, "generic", "registration already in progress")
	}
	defer o.release(event.ID)

	strat := o.registry.StrategyFor(event)
	key := domain.FailureKey{EventID: event.ID, Strategy: strat.Name()}

	if !o.engine.ShouldRetryEvent(ctx, event.ID, strat.Name()) {
		return o.rejected(event, strat.Name(),
			"recent failure on record, waiting out the cool-down window")
	}

	// Transient state for the duration of this invocation only. Never
	// persisted: a crash mid-attempt must leave the event approved so the
	// next scheduler tick retries cleanly.
	event.Status = domain.EventStatusRegistering

	result := o.engine.Execute(ctx, key, func(ctx context.Context) (*domain.RegistrationAttempt, error) {
		return o.runAttempt(ctx, event, strat)
	})

	o.persistOutcome(ctx, event, result)
	return result
}

// runAttempt performs one strategy execution against a freshly opened page.
// The page is released on every exit path, panics included.
func (o *Orchestrator) runAttempt(
	ctx context.Context,
	event *domain.Event,
	strat strategy.Strategy,
) (attempt *domain.RegistrationAttempt, err error) {
	page, err := o.browser.OpenPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser page: %w", err)
	}
	metrics.OpenPages.Inc()

	defer func() {
		if cerr := page.Close(); cerr != nil {
			o.log.Warn("failed to close page", "event_id", event.ID, "error", cerr)
		}
		metrics.OpenPages.Dec()

		if r := recover(); r != nil {
			o.log.Error("panic during registration attempt",
				"event_id", event.ID,
				"strategy", strat.Name(),
				"panic", r,
			)
			attempt = nil
			err = fmt.Errorf("registration attempt panicked: %v", r)
		}
	}()

	return strat.Register(ctx, strategy.Request{
		Event:       event,
		Profile:     o.profile,
		Page:        page,
		NavTimeout:  o.cfg.NavTimeout,
		StepTimeout: o.cfg.StepTimeout,
	})
}

// ProcessApprovedEvents runs one batch: every approved event is attempted
// once through RegisterForEvent with bounded concurrency. Events are
// independent units of work; no cross-event ordering is guaranteed.
func (o *Orchestrator) ProcessApprovedEvents(ctx context.Context) (BatchSummary, error) {
	events, err := o.events.ListByStatus(ctx, domain.EventStatusApproved)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("failed to list approved events: %w", err)
	}
	if len(events) == 0 {
		return BatchSummary{}, nil
	}

	o.log.Info("processing approved events", "count", len(events))

	jobs := make(chan *domain.Event)
	var wg sync.WaitGroup
	var mu sync.Mutex
	summary := BatchSummary{}

	workers := o.cfg.MaxConcurrent
	if workers > len(events) {
		workers = len(events)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range jobs {
				result := o.RegisterForEvent(ctx, event)

				mu.Lock()
				summary.Processed++
				if result.Success {
					summary.Registered++
				} else {
					summary.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, event := range events {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return summary, ctx.Err()
		case jobs <- event:
		}
	}
	close(jobs)
	wg.Wait()

	metrics.EventsProcessed.WithLabelValues("registered").Add(float64(summary.Registered))
	metrics.EventsProcessed.WithLabelValues("failed").Add(float64(summary.Failed))

	o.log.Info("batch complete",
		"processed", summary.Processed,
		"registered", summary.Registered,
		"failed", summary.Failed,
	)
	return summary, nil
}

// RetryStats exposes the retry engine's aggregate counters.
func (o *Orchestrator) RetryStats() retry.Stats {
	return o.engine.Stats()
}

// persistOutcome appends the attempt to history and transitions the event to
// its terminal status.
func (o *Orchestrator) persistOutcome(
	ctx context.Context,
	event *domain.Event,
	attempt *domain.RegistrationAttempt,
) {
	if err := o.attempts.Add(ctx, attempt); err != nil {
		o.log.Error("failed to persist attempt", "event_id", event.ID, "error", err)
	}

	var status domain.EventStatus
	switch {
	case attempt.Success:
		status = domain.EventStatusRegistered
		metrics.AttemptsTotal.WithLabelValues(attempt.Strategy, "success").Inc()
	case attempt.SafetyViolation, attempt.RequiresManual:
		status = domain.EventStatusManualRequired
		metrics.AttemptsTotal.WithLabelValues(attempt.Strategy, "manual").Inc()
		metrics.FailuresTotal.WithLabelValues(attempt.Strategy, string(attempt.Category)).Inc()
	default:
		status = domain.EventStatusFailed
		metrics.AttemptsTotal.WithLabelValues(attempt.Strategy, "failed").Inc()
		metrics.FailuresTotal.WithLabelValues(attempt.Strategy, string(attempt.Category)).Inc()
	}
	if attempt.Elapsed > 0 {
		metrics.AttemptDuration.WithLabelValues(attempt.Strategy).Observe(attempt.Elapsed.Seconds())
	}

	event.Status = status
	if err := o.events.UpdateStatus(ctx, event.ID, status, attempt.ConfirmationID); err != nil {
		o.log.Error("failed to update event status",
			"event_id", event.ID,
			"status", status,
			"error", err,
		)
	}
}

// rejected builds a non-persisted refusal result.
func (o *Orchestrator) rejected(
	event *domain.Event,
	strategyName, reason string,
) *domain.RegistrationAttempt {
	return &domain.RegistrationAttempt{
		ID:          uuid.New().String(),
		EventID:     event.ID,
		Strategy:    strategyName,
		Success:     false,
		Message:     reason,
		Category:    domain.CategoryClientError,
		AttemptedAt: time.Now(),
	}
}

// acquire claims the single-flight slot for an event. It returns false when
// another attempt for the same event is already running.
func (o *Orchestrator) acquire(eventID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inflight[eventID]; ok {
		return false
	}
	o.inflight[eventID] = struct{}{}
	return true
}

// release frees the single-flight slot for an event.
func (o *Orchestrator) release(eventID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, eventID)
}
