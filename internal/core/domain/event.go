package domain

import "time"

// Event represents a discovered family activity that can be registered for.
// Events are created by the discovery pipeline and may be merged from several
// sources; this service only drives status transitions from approved onward
// and never deletes an event.
type Event struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Sources         []string    `json:"sources"`
	Cost            float64     `json:"cost"`
	RegistrationURL string      `json:"registration_url"`
	Status          EventStatus `json:"status"`
	AgeRange        AgeRange    `json:"age_range"`
	StartsAt        time.Time   `json:"starts_at"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// IsFree reports whether the event has a declared cost of exactly zero.
// Automated registration only ever runs against free events.
func (e *Event) IsFree() bool {
	return e.Cost == 0
}

// AgeRange is the suitable age band for an event, inclusive.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type EventStatus string

const (
	EventStatusDiscovered     EventStatus = "discovered"
	EventStatusProposed       EventStatus = "proposed"
	EventStatusApproved       EventStatus = "approved"
	EventStatusRegistering    EventStatus = "registering"
	EventStatusRegistered     EventStatus = "registered"
	EventStatusFailed         EventStatus = "failed"
	EventStatusManualRequired EventStatus = "manual_required"
)

// Terminal reports whether the status is an end state for the registration
// subsystem. registering is transient and must never survive a crash.
func (s EventStatus) Terminal() bool {
	switch s {
	case EventStatusRegistered, EventStatusFailed, EventStatusManualRequired:
		return true
	}
	return false
}
