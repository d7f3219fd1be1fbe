// Package safety implements the payment guard. Registration automation must
// never touch a payment flow: the cost check runs before any navigation, and
// the page scan runs again after the registration form renders, because a
// "free" listing can still surface a paid add-on mid-flow. A trip here is
// always terminal and never retried.
package safety

import (
	"context"
	"fmt"
	"strings"

	"github.com/nminhdao/registrar/internal/browser"
	"github.com/nminhdao/registrar/internal/core/domain"
)

// Violation describes a detected payment indicator.
type Violation struct {
	Kind   string // "cost", "field", "keyword", "processor"
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("payment safety violation (%s): %s", v.Kind, v.Detail)
}

// Credit-card input fields by common attribute patterns.
var cardFieldSelectors = []string{
	`input[autocomplete="cc-number"]`,
	`input[autocomplete="cc-csc"]`,
	`input[name*="card_number"]`,
	`input[name*="cardnumber"]`,
	`input[name*="creditcard"]`,
	`input[id*="card-number"]`,
	`input[name*="cvv"]`,
	`input[name*="cvc"]`,
}

// Known payment-processor embed signatures.
var processorSelectors = []string{
	`iframe[src*="stripe.com"]`,
	`iframe[src*="paypal.com"]`,
	`iframe[src*="squareup.com"]`,
	`iframe[src*="braintree"]`,
	`form[action*="checkout"]`,
	`div[class*="stripe-element"]`,
}

// Payment-keyword text in the rendered page.
var paymentKeywords = []string{
	"credit card",
	"card number",
	"cvv",
	"cvc",
	"billing address",
	"payment method",
	"payment required",
	"payment information",
	"proceed to payment",
	"checkout total",
}

// AssertFree fails fast when the event's declared cost is not exactly zero.
// No network call is made.
func AssertFree(event *domain.Event) error {
	if !event.IsFree() {
		return &Violation{
			Kind:   "cost",
			Detail: fmt.Sprintf("event %s has declared cost %.2f", event.ID, event.Cost),
		}
	}
	return nil
}

// ScanPage inspects the rendered page for payment indicators: credit-card
// input fields, payment-processor signatures, and payment-keyword text. It
// returns a Violation when one is found, nil otherwise. Selector probe errors
// are swallowed so a flaky DOM query never masks the keyword scan.
func ScanPage(ctx context.Context, page browser.Page) (*Violation, error) {
	for _, sel := range cardFieldSelectors {
		found, err := page.Exists(ctx, sel)
		if err != nil {
			continue
		}
		if found {
			return &Violation{Kind: "field", Detail: sel}, nil
		}
	}

	for _, sel := range processorSelectors {
		found, err := page.Exists(ctx, sel)
		if err != nil {
			continue
		}
		if found {
			return &Violation{Kind: "processor", Detail: sel}, nil
		}
	}

	content, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	lower := strings.ToLower(content)
	for _, kw := range paymentKeywords {
		if strings.Contains(lower, kw) {
			return &Violation{Kind: "keyword", Detail: kw}, nil
		}
	}

	return nil, nil
}
