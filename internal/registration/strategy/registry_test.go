package strategy

import (
	"testing"

	"github.com/nminhdao/registrar/internal/core/domain"
)

func eventWithURL(url string) *domain.Event {
	return &domain.Event{ID: "evt-1", RegistrationURL: url}
}

// Dispatch accuracy across every known domain plus the generic fallback is a
// release gate: one wrong strategy means driving an unfamiliar site.
func TestStrategyFor_Dispatch(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		url    string
		expect string
	}{
		{"https://www.eventbrite.com/e/kids-science-day-tickets-123", "eventbrite"},
		{"https://facebook.com/events/456", "facebook"},
		{"https://WWW.MEETUP.COM/toddler-hikes/events/789", "meetup"},
		{"https://citylib.libcal.com/event/1111", "libcal"},
		{"https://springfield.bibliocommons.com/events/2222", "bibliocommons"},
		{"https://apm.activecommunities.com/parksandrec/Activity_Search/3333", "activenet"},
		{"https://register.communitypass.net/springfield", "communitypass"},
		{"https://springfield.recdesk.com/Community/Program", "recdesk"},
		{"https://webtrac.myvscloud.com/wbwsc/webtrac.wsc/search.html", "webtrac"},
		{"https://some-local-farm.example.org/fall-festival", "generic"},
	}

	for _, tt := range tests {
		got := registry.StrategyFor(eventWithURL(tt.url))
		if got.Name() != tt.expect {
			t.Errorf("StrategyFor(%s) = %s, want %s", tt.url, got.Name(), tt.expect)
		}
	}
}

func TestStrategyFor_NeverFails(t *testing.T) {
	registry := NewRegistry()

	// Dispatch is total: junk URLs land on the generic strategy.
	for _, u := range []string{"", "not a url", "://broken", "ftp://weird.host/x"} {
		got := registry.StrategyFor(eventWithURL(u))
		if got == nil {
			t.Fatalf("StrategyFor(%q) returned nil", u)
		}
		if got.Name() != "generic" {
			t.Errorf("StrategyFor(%q) = %s, want generic", u, got.Name())
		}
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		url    string
		expect string
	}{
		{"https://www.eventbrite.com/e/1", "eventbrite.com"},
		{"https://EVENTBRITE.com/e/1", "eventbrite.com"},
		{"https://sub.libcal.com:8443/event/2", "sub.libcal.com"},
		{"garbage", ""},
	}
	for _, tt := range tests {
		if got := normalizeHost(tt.url); got != tt.expect {
			t.Errorf("normalizeHost(%q) = %q, want %q", tt.url, got, tt.expect)
		}
	}
}

func TestHostMatches_Suffix(t *testing.T) {
	if !hostMatches("citylib.libcal.com", "libcal.com") {
		t.Error("subdomain should match")
	}
	if hostMatches("notlibcal.com", "libcal.com") {
		t.Error("suffix without dot boundary must not match")
	}
}
