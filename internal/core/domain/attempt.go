package domain

import "time"

// RegistrationAttempt is the outcome of one strategy execution. Attempts are
// immutable once created and persisted as append-only history rows owned by
// the event.
type RegistrationAttempt struct {
	ID              string        `json:"id"`
	EventID         string        `json:"event_id"`
	Strategy        string        `json:"strategy"`
	Success         bool          `json:"success"`
	ConfirmationID  string        `json:"confirmation_id,omitempty"`
	Message         string        `json:"message"`
	Category        ErrorCategory `json:"error_category,omitempty"`
	RequiresManual  bool          `json:"requires_manual_action"`
	SafetyViolation bool          `json:"safety_violation"`
	Elapsed         time.Duration `json:"elapsed"`
	AttemptedAt     time.Time     `json:"attempted_at"`
}

// ErrorCategory classifies why a registration attempt failed. Classification
// is total: every failure maps to exactly one category.
type ErrorCategory string

const (
	CategoryNetworkError       ErrorCategory = "network_error"
	CategoryServerError        ErrorCategory = "server_error"
	CategoryClientError        ErrorCategory = "client_error"
	CategoryRateLimit          ErrorCategory = "rate_limit"
	CategoryBrowserError       ErrorCategory = "browser_error"
	CategorySiteUnavailable    ErrorCategory = "site_unavailable"
	CategoryRegistrationClosed ErrorCategory = "registration_closed"
	CategoryUnknownError       ErrorCategory = "unknown_error"
)
