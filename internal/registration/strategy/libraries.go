package strategy

import (
	"context"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// LibCalStrategy drives Springshare LibCal event pages, the booking system
// behind most public library calendars.
type LibCalStrategy struct{}

func (s *LibCalStrategy) Name() string { return "libcal" }

func (s *LibCalStrategy) CanHandle(host string) bool {
	return hostMatches(host, "libcal.com")
}

var libcalPlan = formPlan{
	formSelectors: []string{
		`form#s-lc-event-register-form`,
		`form[id*="register"]`,
	},
	closedPatterns: []string{
		"registration has closed",
		"this event is full",
		"no seats available",
		"waiting list",
	},
	fields: []formField{
		{
			selectors: []string{`input#s-lc-fname`, `input[name="fname"]`},
			value:     parentName,
		},
		{
			selectors: []string{`input#s-lc-email`, `input[name="email"]`, `input[type="email"]`},
			value:     parentEmail,
		},
		{
			selectors: []string{`input[name*="phone"]`},
			value:     parentPhone,
		},
		{
			// LibCal custom questions commonly ask for the child's name/age.
			selectors: []string{`input[name*="q1"]`, `input[name*="child"]`},
			value:     firstChildName,
		},
	},
	submitSelectors: []string{
		`button#s-lc-registration-submit`,
		`button[type="submit"]`,
	},
	confirmSelectors: []string{
		`.s-lc-event-regconfirm`,
		`[class*="confirmation"]`,
	},
}

func (s *LibCalStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return runForm(ctx, req, s.Name(), libcalPlan)
}

// BiblioCommonsStrategy drives BiblioCommons-hosted library event pages
// (*.bibliocommons.com per-library subdomains).
type BiblioCommonsStrategy struct{}

func (s *BiblioCommonsStrategy) Name() string { return "bibliocommons" }

func (s *BiblioCommonsStrategy) CanHandle(host string) bool {
	return hostMatches(host, "bibliocommons.com")
}

var bibliocommonsPlan = formPlan{
	formSelectors: []string{
		`form[class*="event-registration"]`,
		`form[action*="registrations"]`,
	},
	closedPatterns: []string{
		"registration is closed",
		"this event is full",
		"sold out",
	},
	fields: []formField{
		{
			selectors: []string{`input[name*="name"]`},
			value:     parentName,
		},
		{
			selectors: []string{`input[type="email"]`, `input[name*="email"]`},
			value:     parentEmail,
		},
		{
			selectors: []string{`input[name*="phone"]`},
			value:     parentPhone,
		},
		{
			selectors: []string{`input[name*="attendees"]`, `select[name*="attendees"]`},
			value:     childCount,
		},
	},
	submitSelectors: []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
	},
	confirmSelectors: []string{
		`[class*="registration-confirmation"]`,
		`[class*="confirmation"]`,
	},
}

func (s *BiblioCommonsStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return runForm(ctx, req, s.Name(), bibliocommonsPlan)
}
