// Package strategy implements per-site registration automation. Each site
// family gets one strategy behind a uniform interface; the registry resolves
// an event's registration URL to exactly one strategy, with a generic
// heuristic fallback so dispatch never fails.
package strategy

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nminhdao/registrar/internal/browser"
	"github.com/nminhdao/registrar/internal/core/domain"
)

// Request carries everything a strategy needs for one attempt. The page is
// acquired and released by the orchestrator; strategies never own it.
type Request struct {
	Event       *domain.Event
	Profile     *domain.FamilyProfile
	Page        browser.Page
	NavTimeout  time.Duration
	StepTimeout time.Duration
}

// Strategy automates registration for one family of websites. Register
// returns a structured attempt for any handled outcome and an error only for
// unexpected failures, which the retry engine classifies.
type Strategy interface {
	// Name identifies the strategy in results and failure records.
	Name() string

	// CanHandle reports whether this strategy drives the given host. The host
	// is already lowercased with any www. prefix and port stripped.
	CanHandle(host string) bool

	// Register drives the site's registration flow on the supplied page.
	Register(ctx context.Context, req Request) (*domain.RegistrationAttempt, error)
}

// Registry resolves events to strategies via a static host table.
type Registry struct {
	sites    []Strategy
	fallback Strategy
}

// NewRegistry builds the default registry: all site strategies plus the
// generic fallback.
func NewRegistry() *Registry {
	return &Registry{
		sites: []Strategy{
			&EventbriteStrategy{},
			&FacebookStrategy{},
			&MeetupStrategy{},
			&LibCalStrategy{},
			&BiblioCommonsStrategy{},
			&ActiveNetStrategy{},
			&CommunityPassStrategy{},
			&RecDeskStrategy{},
			&WebTracStrategy{},
		},
		fallback: &GenericStrategy{},
	}
}

// NewRegistryWith builds a registry from explicit strategies. The fallback
// handles anything the sites decline.
func NewRegistryWith(fallback Strategy, sites ...Strategy) *Registry {
	return &Registry{sites: sites, fallback: fallback}
}

// StrategyFor returns the strategy handling the event's registration URL.
// Matching is case-insensitive, tolerant of www. prefixes, and total: an
// unparseable or unknown host falls back to the generic strategy.
func (r *Registry) StrategyFor(event *domain.Event) Strategy {
	host := normalizeHost(event.RegistrationURL)
	if host == "" {
		return r.fallback
	}
	for _, s := range r.sites {
		if s.CanHandle(host) {
			return s
		}
	}
	return r.fallback
}

// Strategies returns every registered strategy, fallback last.
func (r *Registry) Strategies() []Strategy {
	return append(append([]Strategy{}, r.sites...), r.fallback)
}

func normalizeHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host
}

// hostMatches reports whether host is domain or a subdomain of it.
func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// newAttempt stamps the common attempt fields.
func newAttempt(event *domain.Event, strategyName string) *domain.RegistrationAttempt {
	return &domain.RegistrationAttempt{
		ID:          uuid.New().String(),
		EventID:     event.ID,
		Strategy:    strategyName,
		AttemptedAt: time.Now(),
	}
}

// successAttempt builds a successful result.
func successAttempt(
	event *domain.Event,
	strategyName, confirmationID, message string,
	elapsed time.Duration,
) *domain.RegistrationAttempt {
	a := newAttempt(event, strategyName)
	a.Success = true
	a.ConfirmationID = confirmationID
	a.Message = message
	a.Elapsed = elapsed
	return a
}

// failedAttempt builds a classified failure result.
func failedAttempt(
	event *domain.Event,
	strategyName string,
	category domain.ErrorCategory,
	message string,
	requiresManual bool,
	elapsed time.Duration,
) *domain.RegistrationAttempt {
	a := newAttempt(event, strategyName)
	a.Success = false
	a.Category = category
	a.Message = message
	a.RequiresManual = requiresManual
	a.Elapsed = elapsed
	return a
}
