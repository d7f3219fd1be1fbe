// Package classify maps registration failures onto a fixed set of error
// categories. Classification is keyword-based, deterministic, and total:
// every error yields exactly one category.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// StatusError carries HTTP-status-like metadata alongside a message. Site
// strategies wrap upstream responses in it so classification can use the code
// instead of guessing from text.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// keyword tables, checked in order. First match wins.
var (
	rateLimitKeywords = []string{
		"429", "rate limit", "too many requests", "quota exceeded", "throttled",
	}
	networkKeywords = []string{
		"timeout", "timed out", "econnreset", "econnrefused", "etimedout",
		"connection reset", "connection refused", "connection closed",
		"no such host", "dns", "network", "eof",
	}
	browserKeywords = []string{
		"crashed", "detached", "target closed", "session closed",
		"browser", "page closed", "navigation failed",
	}
	unavailableKeywords = []string{
		"maintenance", "temporarily unavailable", "service unavailable",
		"be back soon",
	}
	closedKeywords = []string{
		"sold out", "registration closed", "registration is closed",
		"fully booked", "waitlist", "no spots", "no longer available",
		"closed", "full",
	}
	serverKeywords = []string{
		"500", "502", "503", "504", "server error", "internal error",
		"bad gateway",
	}
	clientKeywords = []string{
		"400", "bad request", "401", "403", "404", "not found", "forbidden",
		"invalid",
	}
)

// Classify maps err to exactly one error category. Unrecognized errors fall
// through to unknown_error; Classify never panics and never returns an empty
// category.
func Classify(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryUnknownError
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if cat, ok := classifyCode(statusErr.Code); ok {
			return cat
		}
	}

	s := strings.ToLower(err.Error())

	for _, kw := range rateLimitKeywords {
		if strings.Contains(s, kw) {
			return domain.CategoryRateLimit
		}
	}
	for _, kw := range networkKeywords {
		if strings.Contains(s, kw) {
			return domain.CategoryNetworkError
		}
	}
	for _, kw := range browserKeywords {
		if strings.Contains(s, kw) {
			return domain.CategoryBrowserError
		}
	}
	for _, kw := range unavailableKeywords {
		if strings.Contains(s, kw) {
			return domain.CategorySiteUnavailable
		}
	}
	for _, kw := range closedKeywords {
		if strings.Contains(s, kw) {
			return domain.CategoryRegistrationClosed
		}
	}
	for _, kw := range serverKeywords {
		if strings.Contains(s, kw) {
			return domain.CategoryServerError
		}
	}
	for _, kw := range clientKeywords {
		if strings.Contains(s, kw) {
			return domain.CategoryClientError
		}
	}

	return domain.CategoryUnknownError
}

func classifyCode(code int) (domain.ErrorCategory, bool) {
	switch {
	case code == 429:
		return domain.CategoryRateLimit, true
	case code >= 500:
		return domain.CategoryServerError, true
	case code >= 400:
		return domain.CategoryClientError, true
	}
	return "", false
}
