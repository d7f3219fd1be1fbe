package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
	"github.com/nminhdao/registrar/internal/infra/storage"
)

// MemoryStorage backs all repositories with in-process maps. Used by tests
// and when no database URL is configured.
type MemoryStorage struct {
	events   map[string]*domain.Event
	attempts map[string][]*domain.RegistrationAttempt
	failures map[domain.FailureKey]*failureEntry
	mu       sync.RWMutex
}

type failureEntry struct {
	record    *domain.FailureRecord
	expiresAt time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		events:   make(map[string]*domain.Event),
		attempts: make(map[string][]*domain.RegistrationAttempt),
		failures: make(map[domain.FailureKey]*failureEntry),
	}
}

// -----------------------------------------------------------------------------
// Event Repository
// -----------------------------------------------------------------------------

type EventRepo struct {
	store *MemoryStorage
}

func NewEventRepo(store *MemoryStorage) *EventRepo {
	return &EventRepo{store: store}
}

func (r *EventRepo) Create(ctx context.Context, event *domain.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *event
	r.store.events[event.ID] = &cp
	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	e, ok := r.store.events[id]
	if !ok {
		return nil, storage.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *EventRepo) ListByStatus(
	ctx context.Context,
	status domain.EventStatus,
) ([]*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var events []*domain.Event
	for _, e := range r.store.events {
		if e.Status == status {
			cp := *e
			events = append(events, &cp)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r *EventRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.EventStatus,
	confirmationID string,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.events[id]
	if !ok {
		return storage.ErrEventNotFound
	}
	e.Status = status
	e.UpdatedAt = time.Now()
	return nil
}

func (r *EventRepo) RequeueStuck(ctx context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, e := range r.store.events {
		if e.Status == domain.EventStatusRegistering {
			e.Status = domain.EventStatusApproved
			e.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Attempt Repository
// -----------------------------------------------------------------------------

type AttemptRepo struct {
	store *MemoryStorage
}

func NewAttemptRepo(store *MemoryStorage) *AttemptRepo {
	return &AttemptRepo{store: store}
}

func (r *AttemptRepo) Add(ctx context.Context, attempt *domain.RegistrationAttempt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *attempt
	r.store.attempts[attempt.EventID] = append(r.store.attempts[attempt.EventID], &cp)
	return nil
}

func (r *AttemptRepo) ListByEvent(
	ctx context.Context,
	eventID string,
) ([]*domain.RegistrationAttempt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	attempts := make([]*domain.RegistrationAttempt, 0, len(r.store.attempts[eventID]))
	for _, a := range r.store.attempts[eventID] {
		cp := *a
		attempts = append(attempts, &cp)
	}
	return attempts, nil
}

func (r *AttemptRepo) CountByEvent(ctx context.Context, eventID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.attempts[eventID]), nil
}

// -----------------------------------------------------------------------------
// Failure Repository
// -----------------------------------------------------------------------------

// maxFailureEntries bounds the in-memory failure table; oldest entries are
// evicted first when the cap is hit.
const maxFailureEntries = 1024

type FailureRepo struct {
	store *MemoryStorage
}

func NewFailureRepo(store *MemoryStorage) *FailureRepo {
	return &FailureRepo{store: store}
}

func (r *FailureRepo) Get(
	ctx context.Context,
	key domain.FailureKey,
) (*domain.FailureRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entry, ok := r.store.failures[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(r.store.failures, key)
		return nil, nil
	}
	cp := *entry.record
	return &cp, nil
}

func (r *FailureRepo) Put(
	ctx context.Context,
	record *domain.FailureRecord,
	retention time.Duration,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if len(r.store.failures) >= maxFailureEntries {
		r.evictOldestLocked()
	}

	cp := *record
	r.store.failures[record.Key()] = &failureEntry{
		record:    &cp,
		expiresAt: time.Now().Add(retention),
	}
	return nil
}

func (r *FailureRepo) Delete(ctx context.Context, key domain.FailureKey) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.failures, key)
	return nil
}

func (r *FailureRepo) evictOldestLocked() {
	var oldest domain.FailureKey
	var oldestAt time.Time
	first := true
	for k, entry := range r.store.failures {
		if first || entry.record.LastFailure.Before(oldestAt) {
			oldest = k
			oldestAt = entry.record.LastFailure
			first = false
		}
	}
	if !first {
		delete(r.store.failures, oldest)
	}
}
