package registration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nminhdao/registrar/internal/browser"
	"github.com/nminhdao/registrar/internal/core/domain"
	"github.com/nminhdao/registrar/internal/infra/storage/memory"
	"github.com/nminhdao/registrar/internal/registration/retry"
	"github.com/nminhdao/registrar/internal/registration/strategy"
)

// =============================================================================
// Mock browser
// =============================================================================

type mockBrowser struct {
	opened  atomic.Int64
	closed  atomic.Int64
	openErr error
}

func (b *mockBrowser) OpenPage(ctx context.Context) (browser.Page, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened.Add(1)
	return &sessionPage{browser: b}, nil
}

func (b *mockBrowser) Close() error { return nil }

type sessionPage struct {
	browser *mockBrowser
	once    sync.Once
}

func (p *sessionPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	return nil
}
func (p *sessionPage) Exists(ctx context.Context, selector string) (bool, error) {
	return false, nil
}
func (p *sessionPage) Fill(ctx context.Context, selector, value string) error { return nil }
func (p *sessionPage) Click(ctx context.Context, selector string) error       { return nil }
func (p *sessionPage) Text(ctx context.Context, selector string) (string, error) {
	return "", nil
}
func (p *sessionPage) Content(ctx context.Context) (string, error) { return "", nil }
func (p *sessionPage) Close() error {
	p.once.Do(func() { p.browser.closed.Add(1) })
	return nil
}

// =============================================================================
// Scripted strategies
// =============================================================================

type scriptedStrategy struct {
	name    string
	mu      sync.Mutex
	calls   int
	handler func(call int, req strategy.Request) (*domain.RegistrationAttempt, error)
}

func (s *scriptedStrategy) Name() string              { return s.name }
func (s *scriptedStrategy) CanHandle(host string) bool { return true }

func (s *scriptedStrategy) Register(
	ctx context.Context,
	req strategy.Request,
) (*domain.RegistrationAttempt, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.handler(call, req)
}

func alwaysSucceed() *scriptedStrategy {
	return &scriptedStrategy{
		name: "scripted",
		handler: func(call int, req strategy.Request) (*domain.RegistrationAttempt, error) {
			return &domain.RegistrationAttempt{
				EventID:        req.Event.ID,
				Strategy:       "scripted",
				Success:        true,
				ConfirmationID: "CONF-" + req.Event.ID,
				Message:        "registered",
				AttemptedAt:    time.Now(),
			}, nil
		},
	}
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	orch     *Orchestrator
	events   *memory.EventRepo
	attempts *memory.AttemptRepo
	browser  *mockBrowser
	strategy *scriptedStrategy
}

func newFixture(t *testing.T, strat *scriptedStrategy) *fixture {
	t.Helper()
	store := memory.NewMemoryStorage()
	events := memory.NewEventRepo(store)
	attempts := memory.NewAttemptRepo(store)
	failures := memory.NewFailureRepo(store)

	engine := retry.NewEngine(failures, retry.Config{
		Cooldown:  time.Hour,
		Retention: time.Hour,
	}, nil)

	b := &mockBrowser{}
	registry := strategy.NewRegistryWith(strat)

	orch := NewOrchestrator(
		events, attempts, engine, registry, b,
		&domain.FamilyProfile{ParentName: "Jordan", Email: "j@example.com"},
		Config{MaxConcurrent: 2, NavTimeout: time.Second, StepTimeout: time.Second},
		nil,
	)
	return &fixture{orch: orch, events: events, attempts: attempts, browser: b, strategy: strat}
}

func approvedEvent(id string) *domain.Event {
	return &domain.Event{
		ID:              id,
		Title:           "Event " + id,
		Cost:            0,
		RegistrationURL: "https://example.org/events/" + id,
		Status:          domain.EventStatusApproved,
	}
}

// =============================================================================
// RegisterForEvent
// =============================================================================

func TestRegisterForEvent_Success(t *testing.T) {
	f := newFixture(t, alwaysSucceed())
	ctx := context.Background()

	event := approvedEvent("evt-1")
	_ = f.events.Create(ctx, event)

	result := f.orch.RegisterForEvent(ctx, event)
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Message)
	}

	stored, _ := f.events.GetByID(ctx, "evt-1")
	if stored.Status != domain.EventStatusRegistered {
		t.Errorf("status = %s, want registered", stored.Status)
	}

	history, _ := f.attempts.ListByEvent(ctx, "evt-1")
	if len(history) != 1 {
		t.Errorf("history rows = %d, want 1", len(history))
	}
}

func TestRegisterForEvent_CostInvariant(t *testing.T) {
	f := newFixture(t, alwaysSucceed())
	ctx := context.Background()

	for _, cost := range []float64{0.01, 12.50, -3} {
		event := approvedEvent("evt-paid")
		event.Cost = cost
		_ = f.events.Create(ctx, event)

		result := f.orch.RegisterForEvent(ctx, event)
		if result.Success {
			t.Fatalf("cost %.2f: registration must be refused", cost)
		}
		if !result.SafetyViolation {
			t.Errorf("cost %.2f: expected safety violation", cost)
		}
	}

	// The browser must never have been touched.
	if f.browser.opened.Load() != 0 {
		t.Errorf("browser opened %d pages for paid events, want 0", f.browser.opened.Load())
	}

	stored, _ := f.events.GetByID(ctx, "evt-paid")
	if stored.Status != domain.EventStatusManualRequired {
		t.Errorf("status = %s, want manual_required", stored.Status)
	}
}

func TestRegisterForEvent_OnlyApproved(t *testing.T) {
	f := newFixture(t, alwaysSucceed())
	ctx := context.Background()

	for _, status := range []domain.EventStatus{
		domain.EventStatusDiscovered,
		domain.EventStatusProposed,
		domain.EventStatusRegistered,
		domain.EventStatusFailed,
	} {
		event := approvedEvent("evt-x")
		event.Status = status
		result := f.orch.RegisterForEvent(ctx, event)
		if result.Success {
			t.Errorf("status %s: registration must be refused", status)
		}
	}
	if f.browser.opened.Load() != 0 {
		t.Error("browser touched for non-approved events")
	}
}

func TestRegisterForEvent_ManualRequiredOutcome(t *testing.T) {
	strat := &scriptedStrategy{
		name: "scripted",
		handler: func(call int, req strategy.Request) (*domain.RegistrationAttempt, error) {
			return &domain.RegistrationAttempt{
				EventID:        req.Event.ID,
				Strategy:       "scripted",
				Success:        false,
				Message:        "no usable registration form found",
				Category:       domain.CategoryUnknownError,
				RequiresManual: true,
				AttemptedAt:    time.Now(),
			}, nil
		},
	}
	f := newFixture(t, strat)
	ctx := context.Background()

	event := approvedEvent("evt-1")
	_ = f.events.Create(ctx, event)

	result := f.orch.RegisterForEvent(ctx, event)
	if result.Success {
		t.Fatal("expected failure")
	}

	stored, _ := f.events.GetByID(ctx, "evt-1")
	if stored.Status != domain.EventStatusManualRequired {
		t.Errorf("status = %s, want manual_required", stored.Status)
	}
}

func TestRegisterForEvent_PanicIsContained(t *testing.T) {
	strat := &scriptedStrategy{
		name: "scripted",
		handler: func(call int, req strategy.Request) (*domain.RegistrationAttempt, error) {
			panic("selector engine exploded")
		},
	}
	f := newFixture(t, strat)
	ctx := context.Background()

	event := approvedEvent("evt-1")
	_ = f.events.Create(ctx, event)

	result := f.orch.RegisterForEvent(ctx, event)
	if result == nil {
		t.Fatal("panic escaped the orchestrator")
	}
	if result.Success {
		t.Fatal("panicked attempt reported success")
	}
	if result.Category != domain.CategoryUnknownError {
		t.Errorf("category = %s, want unknown_error", result.Category)
	}

	// The page must still have been released.
	if f.browser.opened.Load() != f.browser.closed.Load() {
		t.Errorf("page leak after panic: opened %d, closed %d",
			f.browser.opened.Load(), f.browser.closed.Load())
	}
}

// =============================================================================
// Resource cleanup
// =============================================================================

func TestResourceCleanup_AllPaths(t *testing.T) {
	call := 0
	strat := &scriptedStrategy{
		name: "scripted",
		handler: func(c int, req strategy.Request) (*domain.RegistrationAttempt, error) {
			call++
			switch call % 3 {
			case 0:
				panic("boom")
			case 1:
				return &domain.RegistrationAttempt{
					EventID: req.Event.ID, Strategy: "scripted", Success: true,
				}, nil
			default:
				return nil, errors.New("some inexplicable failure")
			}
		},
	}
	f := newFixture(t, strat)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		event := approvedEvent("evt-" + string(rune('a'+i)))
		_ = f.events.Create(ctx, event)
		f.orch.RegisterForEvent(ctx, event)
	}

	if f.browser.opened.Load() == 0 {
		t.Fatal("expected pages to have been opened")
	}
	if f.browser.opened.Load() != f.browser.closed.Load() {
		t.Errorf("opened %d pages but closed %d", f.browser.opened.Load(), f.browser.closed.Load())
	}
}

// =============================================================================
// Batch
// =============================================================================

func TestProcessApprovedEvents_IdempotentReentry(t *testing.T) {
	f := newFixture(t, alwaysSucceed())
	ctx := context.Background()

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		_ = f.events.Create(ctx, approvedEvent(id))
	}

	first, err := f.orch.ProcessApprovedEvents(ctx)
	if err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if first.Processed != 3 || first.Registered != 3 {
		t.Errorf("first batch = %+v, want 3 processed / 3 registered", first)
	}

	// Re-entry on the unchanged set must register nothing new.
	second, err := f.orch.ProcessApprovedEvents(ctx)
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	if second.Processed != 0 {
		t.Errorf("second batch processed %d events, want 0", second.Processed)
	}

	// Exactly one attempt per event.
	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		n, _ := f.attempts.CountByEvent(ctx, id)
		if n != 1 {
			t.Errorf("event %s has %d attempts, want 1", id, n)
		}
	}
}

func TestProcessApprovedEvents_MixedOutcomes(t *testing.T) {
	strat := &scriptedStrategy{
		name: "scripted",
		handler: func(call int, req strategy.Request) (*domain.RegistrationAttempt, error) {
			if req.Event.ID == "evt-bad" {
				return &domain.RegistrationAttempt{
					EventID: req.Event.ID, Strategy: "scripted",
					Success: false, Category: domain.CategoryRegistrationClosed,
					Message: "sold out",
				}, nil
			}
			return &domain.RegistrationAttempt{
				EventID: req.Event.ID, Strategy: "scripted", Success: true,
			}, nil
		},
	}
	f := newFixture(t, strat)
	ctx := context.Background()

	_ = f.events.Create(ctx, approvedEvent("evt-good"))
	_ = f.events.Create(ctx, approvedEvent("evt-bad"))

	summary, err := f.orch.ProcessApprovedEvents(ctx)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if summary.Registered != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 registered / 1 failed", summary)
	}

	bad, _ := f.events.GetByID(ctx, "evt-bad")
	if bad.Status != domain.EventStatusFailed {
		t.Errorf("evt-bad status = %s, want failed", bad.Status)
	}
}

func TestProcessApprovedEvents_Empty(t *testing.T) {
	f := newFixture(t, alwaysSucceed())

	summary, err := f.orch.ProcessApprovedEvents(context.Background())
	if err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}
	if summary.Processed != 0 {
		t.Errorf("processed = %d, want 0", summary.Processed)
	}
}

// =============================================================================
// Stats
// =============================================================================

func TestRetryStats_Exposed(t *testing.T) {
	f := newFixture(t, alwaysSucceed())
	ctx := context.Background()

	event := approvedEvent("evt-1")
	_ = f.events.Create(ctx, event)
	f.orch.RegisterForEvent(ctx, event)

	stats := f.orch.RetryStats()
	if stats.TotalOperations != 1 || stats.SuccessfulOperations != 1 {
		t.Errorf("stats = %+v, want 1 total / 1 success", stats)
	}
}
