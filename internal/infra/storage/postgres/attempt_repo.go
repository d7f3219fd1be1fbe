package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// AttemptRepo implements storage.AttemptRepository using PostgreSQL.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new PostgreSQL attempt repository.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

type attemptRow struct {
	ID              string    `db:"id"`
	EventID         string    `db:"event_id"`
	Strategy        string    `db:"strategy"`
	Success         bool      `db:"success"`
	ConfirmationID  string    `db:"confirmation_id"`
	Message         string    `db:"message"`
	Category        string    `db:"error_category"`
	RequiresManual  bool      `db:"requires_manual"`
	SafetyViolation bool      `db:"safety_violation"`
	ElapsedMs       int64     `db:"elapsed_ms"`
	AttemptedAt     time.Time `db:"attempted_at"`
}

func (r attemptRow) toDomain() *domain.RegistrationAttempt {
	return &domain.RegistrationAttempt{
		ID:              r.ID,
		EventID:         r.EventID,
		Strategy:        r.Strategy,
		Success:         r.Success,
		ConfirmationID:  r.ConfirmationID,
		Message:         r.Message,
		Category:        domain.ErrorCategory(r.Category),
		RequiresManual:  r.RequiresManual,
		SafetyViolation: r.SafetyViolation,
		Elapsed:         time.Duration(r.ElapsedMs) * time.Millisecond,
		AttemptedAt:     r.AttemptedAt,
	}
}

// Add appends one attempt row. History is append-only; there is no update or
// delete path.
func (r *AttemptRepo) Add(ctx context.Context, attempt *domain.RegistrationAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registration_attempts (
			id, event_id, strategy, success, confirmation_id, message,
			error_category, requires_manual, safety_violation, elapsed_ms, attempted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		attempt.ID, attempt.EventID, attempt.Strategy, attempt.Success,
		attempt.ConfirmationID, attempt.Message, string(attempt.Category),
		attempt.RequiresManual, attempt.SafetyViolation,
		attempt.Elapsed.Milliseconds(), attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add attempt: %w", err)
	}
	return nil
}

// ListByEvent retrieves all attempts for an event, oldest first.
func (r *AttemptRepo) ListByEvent(
	ctx context.Context,
	eventID string,
) ([]*domain.RegistrationAttempt, error) {
	var rows []attemptRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, event_id, strategy, success, confirmation_id, message,
		       error_category, requires_manual, safety_violation, elapsed_ms, attempted_at
		FROM registration_attempts
		WHERE event_id = $1
		ORDER BY attempted_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	attempts := make([]*domain.RegistrationAttempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, row.toDomain())
	}
	return attempts, nil
}

// CountByEvent returns the number of recorded attempts for an event.
func (r *AttemptRepo) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM registration_attempts WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}
