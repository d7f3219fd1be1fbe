package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
	"github.com/nminhdao/registrar/internal/infra/storage"
)

// EventRepo implements storage.EventRepository using PostgreSQL.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new PostgreSQL event repository.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

type eventRow struct {
	ID              string    `db:"id"`
	Title           string    `db:"title"`
	Sources         []byte    `db:"sources"`
	Cost            float64   `db:"cost"`
	RegistrationURL string    `db:"registration_url"`
	Status          string    `db:"status"`
	AgeMin          int       `db:"age_min"`
	AgeMax          int       `db:"age_max"`
	StartsAt        time.Time `db:"starts_at"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r eventRow) toDomain() (*domain.Event, error) {
	var sources []string
	if len(r.Sources) > 0 {
		if err := json.Unmarshal(r.Sources, &sources); err != nil {
			return nil, fmt.Errorf("failed to decode event sources: %w", err)
		}
	}
	return &domain.Event{
		ID:              r.ID,
		Title:           r.Title,
		Sources:         sources,
		Cost:            r.Cost,
		RegistrationURL: r.RegistrationURL,
		Status:          domain.EventStatus(r.Status),
		AgeRange:        domain.AgeRange{Min: r.AgeMin, Max: r.AgeMax},
		StartsAt:        r.StartsAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

// Create saves a new event.
func (r *EventRepo) Create(ctx context.Context, event *domain.Event) error {
	sources, err := json.Marshal(event.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode event sources: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (
			id, title, sources, cost, registration_url, status,
			age_min, age_max, starts_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		event.ID, event.Title, sources, event.Cost, event.RegistrationURL,
		string(event.Status), event.AgeRange.Min, event.AgeRange.Max, event.StartsAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var row eventRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, title, sources, cost, registration_url, status,
		       age_min, age_max, starts_at, created_at, updated_at
		FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return row.toDomain()
}

// ListByStatus retrieves all events with the given status, oldest first.
func (r *EventRepo) ListByStatus(
	ctx context.Context,
	status domain.EventStatus,
) ([]*domain.Event, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, title, sources, cost, registration_url, status,
		       age_min, age_max, starts_at, created_at, updated_at
		FROM events WHERE status = $1
		ORDER BY starts_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*domain.Event, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// UpdateStatus transitions an event to a new status.
func (r *EventRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.EventStatus,
	confirmationID string,
) error {
	var (
		res sql.Result
		err error
	)
	if confirmationID != "" {
		res, err = r.db.ExecContext(ctx, `
			UPDATE events
			SET status = $2, confirmation_id = $3, updated_at = NOW()
			WHERE id = $1`, id, string(status), confirmationID)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE events
			SET status = $2, updated_at = NOW()
			WHERE id = $1`, id, string(status))
	}
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return storage.ErrEventNotFound
	}
	return nil
}

// RequeueStuck resets events left in the transient registering status back to
// approved. The registering status is held in memory during an attempt and is
// only ever observed in the database after a crash mid-write.
func (r *EventRepo) RequeueStuck(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET status = $1, updated_at = NOW()
		WHERE status = $2`,
		string(domain.EventStatusApproved), string(domain.EventStatusRegistering),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stuck events: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check requeue result: %w", err)
	}
	return int(affected), nil
}
