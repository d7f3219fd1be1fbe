// Package browser defines the headless-browser capability consumed by
// registration strategies. Implementations live under internal/infra/browser;
// tests use in-memory fakes.
package browser

import (
	"context"
	"time"
)

// Browser hands out page sessions from a shared browser engine. The engine
// process is shared across strategies within one batch, so callers must not
// assume exclusive ownership of global browser state (cookies, storage).
type Browser interface {
	// OpenPage opens a fresh page session. Every opened page must be closed
	// exactly once; page sessions are memory-heavy.
	OpenPage(ctx context.Context) (Page, error)

	// Close tears down the browser engine process.
	Close() error
}

// Page is one browser tab. Every navigation and interaction takes a context;
// a timed-out operation surfaces as an error for classification, not a
// separate state.
type Page interface {
	// Goto navigates to url and waits for the page to settle, bounded by timeout.
	Goto(ctx context.Context, url string, timeout time.Duration) error

	// Exists reports whether a CSS selector matches anything on the page.
	Exists(ctx context.Context, selector string) (bool, error)

	// Fill sets the value of the first element matching selector.
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Text returns the visible text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)

	// Content returns the full rendered HTML of the page.
	Content(ctx context.Context) (string, error)

	// Close releases the page session. Safe to call once per page.
	Close() error
}
