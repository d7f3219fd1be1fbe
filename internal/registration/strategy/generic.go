package strategy

import (
	"context"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// GenericStrategy is the fallback for unrecognized hosts. It looks for a
// plausible registration form by field heuristics and fills it from the
// family profile. When no usable form is found it defers to manual
// registration rather than guessing.
type GenericStrategy struct{}

func (s *GenericStrategy) Name() string { return "generic" }

// CanHandle always matches; the registry keeps the generic strategy last so
// dispatch is total.
func (s *GenericStrategy) CanHandle(host string) bool { return true }

var genericPlan = formPlan{
	formSelectors: []string{
		`form[action*="regist"]`,
		`form[id*="regist"]`,
		`form[class*="regist"]`,
		`form[action*="signup"]`,
		`form[action*="rsvp"]`,
		`form input[type="email"]`,
		`form input[name*="email"]`,
	},
	closedPatterns: []string{
		"registration closed",
		"registration is closed",
		"sold out",
		"fully booked",
		"event is full",
		"waitlist only",
	},
	fields: []formField{
		{
			selectors: []string{
				`input[name*="first_name"]`, `input[name*="firstname"]`,
				`input[name="name"]`, `input[name*="full_name"]`,
				`input[id*="name"]`,
			},
			value: parentName,
		},
		{
			selectors: []string{
				`input[type="email"]`, `input[name*="email"]`, `input[id*="email"]`,
			},
			value: parentEmail,
		},
		{
			selectors: []string{
				`input[type="tel"]`, `input[name*="phone"]`, `input[id*="phone"]`,
			},
			value: parentPhone,
		},
		{
			selectors: []string{
				`input[name*="child_name"]`, `input[name*="childname"]`,
				`input[name*="participant"]`,
			},
			value: firstChildName,
		},
		{
			selectors: []string{
				`input[name*="child_age"]`, `input[name*="age"]`, `select[name*="age"]`,
			},
			value: firstChildAge,
		},
		{
			selectors: []string{
				`input[name*="attendees"]`, `input[name*="guests"]`,
				`input[name*="quantity"]`, `select[name*="attendees"]`,
			},
			value: childCount,
		},
	},
	submitSelectors: []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
		`form button`,
	},
	confirmSelectors: []string{
		`.confirmation`, `#confirmation`,
		`[class*="confirmation"]`, `[class*="success"]`,
	},
}

func (s *GenericStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return runForm(ctx, req, s.Name(), genericPlan)
}
