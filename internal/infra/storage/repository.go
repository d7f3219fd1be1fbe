package storage

import (
	"context"
	"errors"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
)

var (
	// ErrEventNotFound is returned when an event doesn't exist
	ErrEventNotFound = errors.New("event not found")
)

// EventRepository handles event storage operations
type EventRepository interface {
	// Create saves a new event
	Create(ctx context.Context, event *domain.Event) error

	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)

	// ListByStatus retrieves all events with the given status
	ListByStatus(ctx context.Context, status domain.EventStatus) ([]*domain.Event, error)

	// UpdateStatus transitions an event to a new status. confirmationID is
	// stored only when non-empty (successful registration).
	UpdateStatus(
		ctx context.Context,
		id string,
		status domain.EventStatus,
		confirmationID string,
	) error

	// RequeueStuck resets events left in a transient status back to approved.
	// Used on startup and by the admin tool after a crash mid-attempt.
	RequeueStuck(ctx context.Context) (int, error)
}

// AttemptRepository handles the append-only registration history
type AttemptRepository interface {
	// Add appends one attempt row
	Add(ctx context.Context, attempt *domain.RegistrationAttempt) error

	// ListByEvent retrieves all attempts for an event, oldest first
	ListByEvent(ctx context.Context, eventID string) ([]*domain.RegistrationAttempt, error)

	// CountByEvent returns the number of recorded attempts for an event
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

// FailureRepository handles retry-suppression records keyed by (event, strategy)
type FailureRepository interface {
	// Get retrieves the failure record for a key, or nil when absent
	Get(ctx context.Context, key domain.FailureKey) (*domain.FailureRecord, error)

	// Put upserts a failure record. retention bounds how long the record is
	// kept; implementations may evict earlier to cap memory.
	Put(ctx context.Context, record *domain.FailureRecord, retention time.Duration) error

	// Delete removes the record for a key (after a successful registration)
	Delete(ctx context.Context, key domain.FailureKey) error
}
