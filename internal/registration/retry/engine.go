package retry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
	"github.com/nminhdao/registrar/internal/infra/storage"
	"github.com/nminhdao/registrar/internal/registration/classify"
)

// Operation is one strategy execution. It returns a structured attempt on a
// handled outcome (success or classified failure) and an error only for
// unexpected failures, which the engine classifies itself.
type Operation func(ctx context.Context) (*domain.RegistrationAttempt, error)

// Config tunes engine behavior.
type Config struct {
	// Cooldown suppresses new registration cycles for a (event, strategy)
	// pair that failed within this window.
	Cooldown time.Duration

	// Retention bounds how long failure records are kept.
	Retention time.Duration

	// Jitter spreads backoff delays for concurrently retried events. Off on
	// the deterministic path used by tests.
	Jitter bool
}

// DefaultConfig matches one scheduler tick of suppression plus a day of
// failure history.
var DefaultConfig = Config{
	Cooldown:  30 * time.Minute,
	Retention: 24 * time.Hour,
	Jitter:    true,
}

// Engine wraps strategy executions with per-category retries, exponential
// backoff, cool-down suppression, and aggregate statistics. It never lets an
// error escape its own boundary: callers always get a structured attempt.
type Engine struct {
	failures storage.FailureRepository
	cfg      Config
	log      *slog.Logger

	mu            sync.Mutex
	total         int64
	succeeded     int64
	failed        int64
	totalAttempts int64
	byCategory    map[domain.ErrorCategory]int64
}

// Stats is a read-only snapshot of engine counters.
type Stats struct {
	TotalOperations      int64                          `json:"total_operations"`
	SuccessfulOperations int64                          `json:"successful_operations"`
	FailedOperations     int64                          `json:"failed_operations"`
	AverageAttempts      float64                        `json:"average_attempts"`
	CommonErrorTypes     map[domain.ErrorCategory]int64 `json:"common_error_types"`
}

// NewEngine creates a retry engine backed by the given failure store.
func NewEngine(failures storage.FailureRepository, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig.Cooldown
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig.Retention
	}
	return &Engine{
		failures:   failures,
		cfg:        cfg,
		log:        log,
		byCategory: make(map[domain.ErrorCategory]int64),
	}
}

// ShouldRetryEvent reports whether a new registration cycle may start for the
// (event, strategy) pair. A failure recorded within the cool-down window
// declines the cycle regardless of category, so scheduler ticks do not hammer
// a failing site. Store errors fail open: an unreadable record never blocks
// registration.
func (e *Engine) ShouldRetryEvent(ctx context.Context, eventID, strategyName string) bool {
	record, err := e.failures.Get(ctx, domain.FailureKey{EventID: eventID, Strategy: strategyName})
	if err != nil {
		e.log.Warn("failure record lookup failed", "event_id", eventID, "error", err)
		return true
	}
	if record == nil {
		return true
	}
	if time.Since(record.LastFailure) < e.cfg.Cooldown {
		e.log.Debug("event in cool-down, skipping",
			"event_id", eventID,
			"strategy", strategyName,
			"last_failure", record.LastFailure,
		)
		return false
	}
	return true
}

// Execute runs op under the retry policy for whatever category each failure
// classifies to. On exhaustion it records a failure record and returns the
// final attempt; on success it clears any prior record.
func (e *Engine) Execute(
	ctx context.Context,
	key domain.FailureKey,
	op Operation,
) *domain.RegistrationAttempt {
	started := time.Now()

	for attemptNum := 1; ; attemptNum++ {
		attempt, err := op(ctx)
		if err != nil {
			attempt = &domain.RegistrationAttempt{
				EventID:     key.EventID,
				Strategy:    key.Strategy,
				Success:     false,
				Message:     err.Error(),
				Category:    classify.Classify(err),
				AttemptedAt: time.Now(),
			}
		}

		if attempt.Success {
			e.recordOutcome(attemptNum, attempt)
			if err := e.failures.Delete(ctx, key); err != nil {
				e.log.Warn("failed to clear failure record", "event_id", key.EventID, "error", err)
			}
			return attempt
		}

		// Safety violations short-circuit every retry path.
		if attempt.SafetyViolation {
			e.recordOutcome(attemptNum, attempt)
			e.persistFailure(ctx, key, attemptNum, time.Since(started), attempt)
			return attempt
		}

		policy := PolicyFor(attempt.Category)
		if !policy.ShouldRetry || attemptNum >= policy.MaxAttempts {
			e.recordOutcome(attemptNum, attempt)
			e.persistFailure(ctx, key, attemptNum, time.Since(started), attempt)
			return attempt
		}

		delay := Backoff(policy, attemptNum, e.cfg.Jitter)
		e.log.Debug("retrying registration",
			"event_id", key.EventID,
			"strategy", key.Strategy,
			"attempt", attemptNum,
			"category", attempt.Category,
			"delay", delay,
		)

		select {
		case <-ctx.Done():
			attempt.Message = "aborted: " + ctx.Err().Error()
			e.recordOutcome(attemptNum, attempt)
			e.persistFailure(ctx, key, attemptNum, time.Since(started), attempt)
			return attempt
		case <-time.After(delay):
		}
	}
}

// Stats returns a snapshot of aggregate counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	avg := 0.0
	if e.total > 0 {
		avg = float64(e.totalAttempts) / float64(e.total)
	}

	byCat := make(map[domain.ErrorCategory]int64, len(e.byCategory))
	for k, v := range e.byCategory {
		byCat[k] = v
	}

	return Stats{
		TotalOperations:      e.total,
		SuccessfulOperations: e.succeeded,
		FailedOperations:     e.failed,
		AverageAttempts:      avg,
		CommonErrorTypes:     byCat,
	}
}

func (e *Engine) recordOutcome(attempts int, attempt *domain.RegistrationAttempt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.total++
	e.totalAttempts += int64(attempts)
	if attempt.Success {
		e.succeeded++
	} else {
		e.failed++
		e.byCategory[attempt.Category]++
	}
}

func (e *Engine) persistFailure(
	ctx context.Context,
	key domain.FailureKey,
	attempts int,
	elapsed time.Duration,
	attempt *domain.RegistrationAttempt,
) {
	record := &domain.FailureRecord{
		EventID:      key.EventID,
		Strategy:     key.Strategy,
		Attempts:     attempts,
		TotalElapsed: elapsed,
		LastCategory: attempt.Category,
		LastError:    attempt.Message,
		LastFailure:  time.Now(),
	}
	if err := e.failures.Put(ctx, record, e.cfg.Retention); err != nil {
		e.log.Warn("failed to persist failure record", "event_id", key.EventID, "error", err)
	}
}
