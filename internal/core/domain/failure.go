package domain

import "time"

// FailureKey identifies the failure history for one (event, strategy) pair.
type FailureKey struct {
	EventID  string
	Strategy string
}

// FailureRecord is the retained memory of past failed attempts for one
// (event, strategy) pair. It is consulted before a new registration cycle to
// suppress near-term retries and evicted after a bounded retention window.
type FailureRecord struct {
	EventID      string        `json:"event_id"`
	Strategy     string        `json:"strategy"`
	Attempts     int           `json:"attempts"`
	TotalElapsed time.Duration `json:"total_elapsed"`
	LastCategory ErrorCategory `json:"last_category"`
	LastError    string        `json:"last_error"`
	LastFailure  time.Time     `json:"last_failure"`
}

// Key returns the composite lookup key for this record.
func (r *FailureRecord) Key() FailureKey {
	return FailureKey{EventID: r.EventID, Strategy: r.Strategy}
}
