package safety

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// fakePage satisfies browser.Page with canned content and selector hits.
type fakePage struct {
	content   string
	selectors map[string]bool
}

func (p *fakePage) Goto(ctx context.Context, url string, timeout time.Duration) error { return nil }
func (p *fakePage) Exists(ctx context.Context, selector string) (bool, error) {
	return p.selectors[selector], nil
}
func (p *fakePage) Fill(ctx context.Context, selector, value string) error { return nil }
func (p *fakePage) Click(ctx context.Context, selector string) error       { return nil }
func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	return "", nil
}
func (p *fakePage) Content(ctx context.Context) (string, error) { return p.content, nil }
func (p *fakePage) Close() error                                { return nil }

func TestAssertFree(t *testing.T) {
	free := &domain.Event{ID: "evt-1", Cost: 0}
	if err := AssertFree(free); err != nil {
		t.Errorf("free event rejected: %v", err)
	}

	for _, cost := range []float64{0.01, 5, -1, 100} {
		paid := &domain.Event{ID: "evt-2", Cost: cost}
		err := AssertFree(paid)
		if err == nil {
			t.Errorf("cost %.2f: expected violation", cost)
			continue
		}
		v, ok := err.(*Violation)
		if !ok || v.Kind != "cost" {
			t.Errorf("cost %.2f: expected cost violation, got %v", cost, err)
		}
	}
}

func TestScanPage_Clean(t *testing.T) {
	page := &fakePage{
		content: `<html><body><form><input name="email"><input name="child_name">
			<button type="submit">Register</button></form></body></html>`,
		selectors: map[string]bool{},
	}

	v, err := ScanPage(context.Background(), page)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if v != nil {
		t.Errorf("clean page flagged: %v", v)
	}
}

func TestScanPage_CardField(t *testing.T) {
	page := &fakePage{
		selectors: map[string]bool{`input[autocomplete="cc-number"]`: true},
	}

	v, err := ScanPage(context.Background(), page)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if v == nil || v.Kind != "field" {
		t.Errorf("card input not detected, got %v", v)
	}
}

func TestScanPage_ProcessorEmbed(t *testing.T) {
	page := &fakePage{
		selectors: map[string]bool{`iframe[src*="stripe.com"]`: true},
	}

	v, err := ScanPage(context.Background(), page)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if v == nil || v.Kind != "processor" {
		t.Errorf("processor embed not detected, got %v", v)
	}
}

func TestScanPage_PaymentKeywords(t *testing.T) {
	for _, kw := range []string{"Credit Card", "BILLING ADDRESS", "payment method"} {
		page := &fakePage{
			content:   "<html><body>Please enter your " + kw + " to continue</body></html>",
			selectors: map[string]bool{},
		}

		v, err := ScanPage(context.Background(), page)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if v == nil || v.Kind != "keyword" {
			t.Errorf("keyword %q not detected, got %v", kw, v)
			continue
		}
		if !strings.EqualFold(strings.ReplaceAll(v.Detail, " ", ""), strings.ReplaceAll(kw, " ", "")) {
			t.Errorf("detail %q does not match keyword %q", v.Detail, kw)
		}
	}
}
