package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// =============================================================================
// Mock page
// =============================================================================

type mockPage struct {
	content      string
	postSubmit   string // content served after a click, if set
	selectors    map[string]bool
	texts        map[string]string
	filled       map[string]string
	clicked      []string
	gotoErr      error
	lastURL      string
	closed       bool
}

func newMockPage(content string) *mockPage {
	return &mockPage{
		content:   content,
		selectors: make(map[string]bool),
		texts:     make(map[string]string),
		filled:    make(map[string]string),
	}
}

func (p *mockPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.lastURL = url
	return p.gotoErr
}

func (p *mockPage) Exists(ctx context.Context, selector string) (bool, error) {
	return p.selectors[selector], nil
}

func (p *mockPage) Fill(ctx context.Context, selector, value string) error {
	p.filled[selector] = value
	return nil
}

func (p *mockPage) Click(ctx context.Context, selector string) error {
	p.clicked = append(p.clicked, selector)
	if p.postSubmit != "" {
		p.content = p.postSubmit
	}
	return nil
}

func (p *mockPage) Text(ctx context.Context, selector string) (string, error) {
	return p.texts[selector], nil
}

func (p *mockPage) Content(ctx context.Context) (string, error) { return p.content, nil }

func (p *mockPage) Close() error {
	p.closed = true
	return nil
}

func testProfile() *domain.FamilyProfile {
	return &domain.FamilyProfile{
		ParentName: "Jordan Nguyen",
		Email:      "jordan@example.com",
		Phone:      "555-0134",
		Children:   []domain.Child{{Name: "Mai", BirthYear: time.Now().Year() - 6}},
	}
}

func testRequest(page *mockPage) Request {
	return Request{
		Event: &domain.Event{
			ID:              "evt-1",
			Title:           "Storytime",
			RegistrationURL: "https://example.org/events/storytime",
		},
		Profile:     testProfile(),
		Page:        page,
		NavTimeout:  time.Second,
		StepTimeout: time.Second,
	}
}

// =============================================================================
// Generic strategy flow
// =============================================================================

func TestGeneric_FillAndConfirm(t *testing.T) {
	page := newMockPage(`<html><form action="/register"></form></html>`)
	page.selectors[`form input[type="email"]`] = true
	page.selectors[`input[type="email"]`] = true
	page.selectors[`input[name="name"]`] = true
	page.selectors[`button[type="submit"]`] = true
	page.postSubmit = `<html>Thank you! Confirmation number: ABC-1234</html>`

	s := &GenericStrategy{}
	attempt, err := s.Register(context.Background(), testRequest(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !attempt.Success {
		t.Fatalf("expected success, got %s: %s", attempt.Category, attempt.Message)
	}
	if attempt.ConfirmationID != "ABC-1234" {
		t.Errorf("ConfirmationID = %q, want ABC-1234", attempt.ConfirmationID)
	}
	if page.filled[`input[type="email"]`] != "jordan@example.com" {
		t.Errorf("email not filled: %v", page.filled)
	}
	if page.filled[`input[name="name"]`] != "Jordan Nguyen" {
		t.Errorf("name not filled: %v", page.filled)
	}
	if len(page.clicked) != 1 {
		t.Errorf("submit clicked %d times, want 1", len(page.clicked))
	}
}

func TestGeneric_NoFormDefersToManual(t *testing.T) {
	page := newMockPage(`<html><p>Call us to sign up!</p></html>`)

	s := &GenericStrategy{}
	attempt, err := s.Register(context.Background(), testRequest(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Success {
		t.Fatal("expected failure")
	}
	if attempt.Category != domain.CategoryUnknownError {
		t.Errorf("category = %s, want unknown_error", attempt.Category)
	}
	if !attempt.RequiresManual {
		t.Error("no-form outcome must require manual action")
	}
}

func TestGeneric_ClosedRegistration(t *testing.T) {
	page := newMockPage(`<html><h1>Storytime</h1><p>Sorry, this session is sold out.</p></html>`)

	s := &GenericStrategy{}
	attempt, err := s.Register(context.Background(), testRequest(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Category != domain.CategoryRegistrationClosed {
		t.Errorf("category = %s, want registration_closed", attempt.Category)
	}
}

func TestGeneric_PaymentPageTripsGuard(t *testing.T) {
	page := newMockPage(`<html><form action="/register">Enter your credit card</form></html>`)
	page.selectors[`form input[type="email"]`] = true

	s := &GenericStrategy{}
	attempt, err := s.Register(context.Background(), testRequest(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !attempt.SafetyViolation {
		t.Fatal("payment content must flag a safety violation")
	}
	if !attempt.RequiresManual {
		t.Error("safety violation must require manual action")
	}
	if len(page.filled) != 0 || len(page.clicked) != 0 {
		t.Error("no field may be filled or clicked after a safety violation")
	}
}

func TestGeneric_NavigationErrorPropagates(t *testing.T) {
	page := newMockPage("")
	page.gotoErr = context.DeadlineExceeded

	s := &GenericStrategy{}
	_, err := s.Register(context.Background(), testRequest(page))
	if err == nil {
		t.Fatal("navigation failure must surface as an error for classification")
	}
}

func TestGeneric_SubmittedButUnconfirmed(t *testing.T) {
	page := newMockPage(`<html><form action="/register"></form></html>`)
	page.selectors[`form input[type="email"]`] = true
	page.selectors[`button[type="submit"]`] = true
	page.postSubmit = `<html>We received something.</html>`

	s := &GenericStrategy{}
	attempt, err := s.Register(context.Background(), testRequest(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Success {
		t.Fatal("ambiguous outcome must not count as registered")
	}
	if !attempt.RequiresManual {
		t.Error("ambiguous outcome must hand off to a human")
	}
}

// =============================================================================
// Site-specific behavior
// =============================================================================

func TestEventbrite_DefersToManual(t *testing.T) {
	page := newMockPage("")
	s := &EventbriteStrategy{}

	attempt, err := s.Register(context.Background(), testRequest(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Success || !attempt.RequiresManual {
		t.Error("eventbrite must defer to manual registration")
	}
	if page.lastURL != "" {
		t.Error("eventbrite strategy must not navigate at all")
	}
	if attempt.Category != domain.CategoryClientError {
		t.Errorf("category = %s, want client_error", attempt.Category)
	}
}

func TestActiveNet_DropInNotBookable(t *testing.T) {
	page := newMockPage(`<html><p>This is a drop-in program. No registration required.</p></html>`)
	s := &ActiveNetStrategy{}

	attempt, err := s.Register(context.Background(), testRequest(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Category != domain.CategoryRegistrationClosed {
		t.Errorf("category = %s, want registration_closed", attempt.Category)
	}
	if !attempt.RequiresManual {
		t.Error("not-bookable listing should be flagged for a human to verify")
	}
}

func TestLibCal_ClosedRegistration(t *testing.T) {
	page := newMockPage(`<html><p>Registration has closed for this event.</p></html>`)
	s := &LibCalStrategy{}

	attempt, err := s.Register(context.Background(), testRequest(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Category != domain.CategoryRegistrationClosed {
		t.Errorf("category = %s, want registration_closed", attempt.Category)
	}
}
