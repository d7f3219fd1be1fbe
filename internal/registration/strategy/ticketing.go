package strategy

import (
	"context"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// Strategies for third-party platforms this service cannot safely drive.
// Eventbrite funnels even free tickets through a checkout flow, and Facebook
// and Meetup sit behind account/login walls; guessing at those forms risks
// partial registrations or payment pages, so all three defer to manual
// registration immediately without opening the site.

// EventbriteStrategy recognizes Eventbrite listings.
type EventbriteStrategy struct{}

func (s *EventbriteStrategy) Name() string { return "eventbrite" }

func (s *EventbriteStrategy) CanHandle(host string) bool {
	return hostMatches(host, "eventbrite.com") || hostMatches(host, "eventbrite.ca")
}

func (s *EventbriteStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return deferToManual(req.Event, s.Name(),
		"eventbrite tickets go through a checkout flow; register manually"), nil
}

// FacebookStrategy recognizes Facebook event pages.
type FacebookStrategy struct{}

func (s *FacebookStrategy) Name() string { return "facebook" }

func (s *FacebookStrategy) CanHandle(host string) bool {
	return hostMatches(host, "facebook.com") || hostMatches(host, "fb.me")
}

func (s *FacebookStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return deferToManual(req.Event, s.Name(),
		"facebook events require an account session; RSVP manually"), nil
}

// MeetupStrategy recognizes Meetup event pages.
type MeetupStrategy struct{}

func (s *MeetupStrategy) Name() string { return "meetup" }

func (s *MeetupStrategy) CanHandle(host string) bool {
	return hostMatches(host, "meetup.com")
}

func (s *MeetupStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return deferToManual(req.Event, s.Name(),
		"meetup RSVPs require an account session; RSVP manually"), nil
}

// deferToManual is the shared non-retryable "human takes over" result.
func deferToManual(
	event *domain.Event,
	strategyName, reason string,
) *domain.RegistrationAttempt {
	return failedAttempt(event, strategyName,
		domain.CategoryClientError, reason, true, time.Duration(0))
}
