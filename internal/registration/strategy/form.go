package strategy

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
	"github.com/nminhdao/registrar/internal/registration/metrics"
	"github.com/nminhdao/registrar/internal/registration/safety"
)

// formField maps one piece of the family profile onto candidate selectors.
// The first selector present on the page wins; absent fields are skipped.
type formField struct {
	selectors []string
	value     func(p *domain.FamilyProfile) string
}

// formPlan describes one site family's registration form.
type formPlan struct {
	// formSelectors detect a usable registration form. At least one must
	// match or the attempt defers to manual registration.
	formSelectors []string

	// closedPatterns are page-text markers meaning registration cannot be
	// completed (sold out, deadline passed). Checked before any filling.
	closedPatterns []string

	fields          []formField
	submitSelectors []string

	// confirmSelectors locate the post-submit confirmation element.
	confirmSelectors []string
}

// stepCtx bounds one form interaction. Zero means inherit the caller's
// deadline unchanged.
func stepCtx(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

var confirmationIDPattern = regexp.MustCompile(
	`(?i)confirmation\s*(?:number|code|id)?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,})`,
)

var successPatterns = []string{
	"thank you",
	"you're registered",
	"you are registered",
	"registration confirmed",
	"successfully registered",
	"spot is reserved",
}

// runForm executes the shared load/detect/fill/submit/confirm flow. Site
// strategies supply the plan; outcomes come back as structured attempts.
// Navigation and DOM errors are returned raw for the retry engine to
// classify.
func runForm(
	ctx context.Context,
	req Request,
	strategyName string,
	plan formPlan,
) (*domain.RegistrationAttempt, error) {
	start := time.Now()
	page := req.Page
	event := req.Event

	if err := page.Goto(ctx, event.RegistrationURL, req.NavTimeout); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", event.RegistrationURL, err)
	}

	content, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	lower := strings.ToLower(content)

	for _, pat := range plan.closedPatterns {
		if strings.Contains(lower, pat) {
			return failedAttempt(event, strategyName,
				domain.CategoryRegistrationClosed,
				fmt.Sprintf("registration unavailable: page says %q", pat),
				true, time.Since(start)), nil
		}
	}

	formFound := false
	for _, sel := range plan.formSelectors {
		found, err := page.Exists(ctx, sel)
		if err != nil {
			continue
		}
		if found {
			formFound = true
			break
		}
	}
	if !formFound {
		return failedAttempt(event, strategyName,
			domain.CategoryUnknownError,
			"no usable registration form found",
			true, time.Since(start)), nil
	}

	// Second safety gate: the rendered form must be payment-free even though
	// the event's declared cost is zero.
	if violation, err := safety.ScanPage(ctx, page); err != nil {
		return nil, err
	} else if violation != nil {
		metrics.SafetyViolationsTotal.WithLabelValues(strategyName, violation.Kind).Inc()
		a := failedAttempt(event, strategyName,
			domain.CategoryClientError,
			violation.Error(),
			true, time.Since(start))
		a.SafetyViolation = true
		return a, nil
	}

	for _, field := range plan.fields {
		value := field.value(req.Profile)
		if value == "" {
			continue
		}
		for _, sel := range field.selectors {
			fctx, cancel := stepCtx(ctx, req.StepTimeout)
			found, err := page.Exists(fctx, sel)
			if err != nil || !found {
				cancel()
				continue
			}
			err = page.Fill(fctx, sel, value)
			cancel()
			if err != nil {
				return nil, fmt.Errorf("failed to fill %s: %w", sel, err)
			}
			break
		}
	}

	submitted := false
	for _, sel := range plan.submitSelectors {
		sctx, cancel := stepCtx(ctx, req.StepTimeout)
		found, err := page.Exists(sctx, sel)
		if err != nil || !found {
			cancel()
			continue
		}
		err = page.Click(sctx, sel)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to submit form: %w", err)
		}
		submitted = true
		break
	}
	if !submitted {
		return failedAttempt(event, strategyName,
			domain.CategoryUnknownError,
			"registration form has no recognizable submit control",
			true, time.Since(start)), nil
	}

	return extractConfirmation(ctx, req, strategyName, plan, start)
}

func extractConfirmation(
	ctx context.Context,
	req Request,
	strategyName string,
	plan formPlan,
	start time.Time,
) (*domain.RegistrationAttempt, error) {
	page := req.Page
	event := req.Event

	for _, sel := range plan.confirmSelectors {
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		text, err := page.Text(ctx, sel)
		if err != nil {
			continue
		}
		confirmationID := ""
		if m := confirmationIDPattern.FindStringSubmatch(text); m != nil {
			confirmationID = m[1]
		}
		return successAttempt(event, strategyName, confirmationID,
			strings.TrimSpace(text), time.Since(start)), nil
	}

	content, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmation page: %w", err)
	}

	if m := confirmationIDPattern.FindStringSubmatch(content); m != nil {
		return successAttempt(event, strategyName, m[1],
			"registration confirmed, id "+m[1], time.Since(start)), nil
	}

	lower := strings.ToLower(content)
	for _, pat := range successPatterns {
		if strings.Contains(lower, pat) {
			return successAttempt(event, strategyName, "",
				fmt.Sprintf("registration confirmed (page says %q, no confirmation id shown)", pat),
				time.Since(start)), nil
		}
	}

	return failedAttempt(event, strategyName,
		domain.CategoryUnknownError,
		"form submitted but no confirmation detected; verify by hand",
		true, time.Since(start)), nil
}

// Common profile accessors shared across form plans.

func parentName(p *domain.FamilyProfile) string { return p.ParentName }
func parentEmail(p *domain.FamilyProfile) string { return p.Email }
func parentPhone(p *domain.FamilyProfile) string { return p.Phone }

func firstChildName(p *domain.FamilyProfile) string {
	if len(p.Children) == 0 {
		return ""
	}
	return p.Children[0].Name
}

func firstChildAge(p *domain.FamilyProfile) string {
	if len(p.Children) == 0 {
		return ""
	}
	return strconv.Itoa(p.Children[0].Age())
}

func childCount(p *domain.FamilyProfile) string {
	if len(p.Children) == 0 {
		return ""
	}
	return strconv.Itoa(len(p.Children))
}
