package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// ActiveNetStrategy handles ActiveNet parks & recreation portals
// (activecommunities.com). Many listings there are drop-in programs with no
// bookable slots; those come back as a non-retryable closed result so the
// scheduler stops attempting them.
type ActiveNetStrategy struct{}

func (s *ActiveNetStrategy) Name() string { return "activenet" }

func (s *ActiveNetStrategy) CanHandle(host string) bool {
	return hostMatches(host, "activecommunities.com")
}

var activenetNotBookable = []string{
	"general admission",
	"drop-in",
	"drop in program",
	"no registration required",
	"no registration necessary",
}

func (s *ActiveNetStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	start := time.Now()
	event := req.Event

	if err := req.Page.Goto(ctx, event.RegistrationURL, req.NavTimeout); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", event.RegistrationURL, err)
	}

	content, err := req.Page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	lower := strings.ToLower(content)

	for _, pat := range activenetNotBookable {
		if strings.Contains(lower, pat) {
			return failedAttempt(event, s.Name(),
				domain.CategoryRegistrationClosed,
				fmt.Sprintf("not bookable online: listing says %q", pat),
				true, time.Since(start)), nil
		}
	}

	return runForm(ctx, req, s.Name(), activenetPlan)
}

var activenetPlan = formPlan{
	formSelectors: []string{
		`form[id*="enrollment"]`,
		`form[action*="enroll"]`,
	},
	closedPatterns: []string{
		"activity is full",
		"enrollment closed",
		"waitlist",
	},
	fields: []formField{
		{
			selectors: []string{`input[name*="participant_name"]`, `input[name*="participant"]`},
			value:     firstChildName,
		},
		{
			selectors: []string{`input[type="email"]`, `input[name*="email"]`},
			value:     parentEmail,
		},
		{
			selectors: []string{`input[name*="phone"]`},
			value:     parentPhone,
		},
	},
	submitSelectors: []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
	},
	confirmSelectors: []string{
		`[class*="confirmation"]`,
		`[id*="receipt"]`,
	},
}

// CommunityPassStrategy handles CommunityPass municipal program portals.
type CommunityPassStrategy struct{}

func (s *CommunityPassStrategy) Name() string { return "communitypass" }

func (s *CommunityPassStrategy) CanHandle(host string) bool {
	return hostMatches(host, "communitypass.net")
}

var communitypassPlan = formPlan{
	formSelectors: []string{
		`form[id*="registration"]`,
		`form[action*="register"]`,
	},
	closedPatterns: []string{
		"registration period has ended",
		"program is full",
		"sold out",
	},
	fields: []formField{
		{
			selectors: []string{`input[name*="guardian"]`, `input[name*="parent"]`},
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
			selectors: []string{`input[name*="child"]`, `input[name*="participant"]`},
			value:     firstChildName,
		},
		{
			selectors: []string{`input[name*="age"]`, `select[name*="age"]`},
			value:     firstChildAge,
		},
	},
	submitSelectors: []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
	},
	confirmSelectors: []string{
		`[class*="confirmation"]`,
	},
}

func (s *CommunityPassStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return runForm(ctx, req, s.Name(), communitypassPlan)
}

// RecDeskStrategy handles RecDesk recreation department portals.
type RecDeskStrategy struct{}

func (s *RecDeskStrategy) Name() string { return "recdesk" }

func (s *RecDeskStrategy) CanHandle(host string) bool {
	return hostMatches(host, "recdesk.com")
}

var recdeskPlan = formPlan{
	formSelectors: []string{
		`form[id*="programReg"]`,
		`form[action*="program"]`,
	},
	closedPatterns: []string{
		"registration closed",
		"program full",
		"waitlist",
	},
	fields: []formField{
		{
			selectors: []string{`input[name*="memberName"]`, `input[name*="name"]`},
			value:     firstChildName,
		},
		{
			selectors: []string{`input[type="email"]`, `input[name*="email"]`},
			value:     parentEmail,
		},
		{
			selectors: []string{`input[name*="phone"]`},
			value:     parentPhone,
		},
	},
	submitSelectors: []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
	},
	confirmSelectors: []string{
		`[class*="confirmation"]`,
	},
}

func (s *RecDeskStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return runForm(ctx, req, s.Name(), recdeskPlan)
}

// WebTracStrategy handles Vermont Systems WebTrac portals (myvscloud.com).
type WebTracStrategy struct{}

func (s *WebTracStrategy) Name() string { return "webtrac" }

func (s *WebTracStrategy) CanHandle(host string) bool {
	return hostMatches(host, "myvscloud.com")
}

var webtracPlan = formPlan{
	formSelectors: []string{
		`form[id*="websearch"]`,
		`form[action*="wbwsc"]`,
	},
	closedPatterns: []string{
		"section is full",
		"registration not available",
		"unavailable for internet registration",
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
	},
	submitSelectors: []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
		`a[id*="processingprompt"]`,
	},
	confirmSelectors: []string{
		`[class*="confirmation"]`,
		`[id*="receipt"]`,
	},
}

func (s *WebTracStrategy) Register(
	ctx context.Context,
	req Request,
) (*domain.RegistrationAttempt, error) {
	return runForm(ctx, req, s.Name(), webtracPlan)
}
