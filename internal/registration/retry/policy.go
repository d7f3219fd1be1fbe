// Package retry implements the per-category retry policy table, exponential
// backoff, and the execution engine that wraps strategy runs with retries,
// cool-down suppression, and aggregate statistics.
package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// Policy defines retry behavior for one error category.
type Policy struct {
	ShouldRetry bool
	MaxAttempts int
	BaseDelay   time.Duration
}

const (
	// BackoffMultiplier doubles the delay each attempt.
	BackoffMultiplier = 2.0

	// MaxDelay caps any single backoff delay.
	MaxDelay = 30 * time.Second
)

// policies encodes the domain's risk profile per category. rate_limit gets
// the largest budget because the server explicitly asked for backoff; a
// crashed page session rarely self-heals, so browser_error gets only two
// tries; client errors and closed registrations can never be retried away.
var policies = map[domain.ErrorCategory]Policy{
	domain.CategoryRateLimit:          {ShouldRetry: true, MaxAttempts: 5, BaseDelay: 5 * time.Second},
	domain.CategoryNetworkError:       {ShouldRetry: true, MaxAttempts: 4, BaseDelay: 1 * time.Second},
	domain.CategoryServerError:        {ShouldRetry: true, MaxAttempts: 3, BaseDelay: 2 * time.Second},
	domain.CategoryBrowserError:       {ShouldRetry: true, MaxAttempts: 2, BaseDelay: 2 * time.Second},
	domain.CategorySiteUnavailable:    {ShouldRetry: true, MaxAttempts: 2, BaseDelay: 10 * time.Second},
	domain.CategoryClientError:        {ShouldRetry: false, MaxAttempts: 1, BaseDelay: 0},
	domain.CategoryRegistrationClosed: {ShouldRetry: false, MaxAttempts: 1, BaseDelay: 0},
	domain.CategoryUnknownError:       {ShouldRetry: false, MaxAttempts: 1, BaseDelay: 0},
}

// PolicyFor returns the retry policy for a category. Unlisted categories get
// the unknown_error policy (no retry).
func PolicyFor(category domain.ErrorCategory) Policy {
	if p, ok := policies[category]; ok {
		return p
	}
	return policies[domain.CategoryUnknownError]
}

// Backoff returns the delay before the given attempt (1-based). Attempt 1
// waits exactly BaseDelay; each subsequent attempt doubles it, capped at
// MaxDelay. With jitter enabled, attempts after the first get up to 25%
// random extra to spread concurrently retrying events apart.
func Backoff(policy Policy, attempt int, jitter bool) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(policy.BaseDelay) * math.Pow(BackoffMultiplier, float64(attempt-1))
	if delay > float64(MaxDelay) {
		delay = float64(MaxDelay)
	}

	if jitter && attempt > 1 {
		delay += delay * 0.25 * rand.Float64()
		if delay > float64(MaxDelay) {
			delay = float64(MaxDelay)
		}
	}

	return time.Duration(delay)
}
