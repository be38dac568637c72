package filter

import (
	"testing"

	"autoapply-engine/internal/config"
	"autoapply-engine/internal/domain"
)

type seenSet map[string]bool

func (s seenSet) HasSeen(id string) (bool, error) { return s[id], nil }

func TestQuick(t *testing.T) {
	var cfg config.Config
	cfg.Filters.BlockedKeywords = []string{"Senior", "lead"}
	cfg.Filters.BlockedEmployers = []string{"Shady Corp"}

	tests := []struct {
		name   string
		card   domain.ListingSummary
		seen   seenSet
		skip   bool
		reason string
	}{
		{
			name: "clean card passes",
			card: domain.ListingSummary{ID: "12345", Title: "Python junior", Employer: "Acme"},
			seen: seenSet{},
		},
		{
			name:   "already seen",
			card:   domain.ListingSummary{ID: "12345", Title: "Python junior", Employer: "Acme"},
			seen:   seenSet{"12345": true},
			skip:   true,
			reason: "already_seen",
		},
		{
			name:   "blocked keyword case-insensitive",
			card:   domain.ListingSummary{ID: "1", Title: "Tech Lead", Employer: "Acme"},
			seen:   seenSet{},
			skip:   true,
			reason: "blocked_keyword:lead",
		},
		{
			name:   "blocked employer substring",
			card:   domain.ListingSummary{ID: "2", Title: "Go Developer", Employer: "The shady corp ltd"},
			seen:   seenSet{},
			skip:   true,
			reason: "blocked_employer:Shady Corp",
		},
		{
			name: "seen check precedes keyword check",
			card: domain.ListingSummary{ID: "3", Title: "Senior Go", Employer: "Acme"},
			seen: seenSet{"3": true},
			skip: true, reason: "already_seen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Quick(cfg, tt.card, tt.seen)
			if v.Skip != tt.skip || v.Reason != tt.reason {
				t.Errorf("Quick = {%v %q}, want {%v %q}", v.Skip, v.Reason, tt.skip, tt.reason)
			}
		})
	}
}

func TestQuickEmptyDenylists(t *testing.T) {
	var cfg config.Config
	card := domain.ListingSummary{ID: "12345", Title: "Python junior", Employer: "Acme"}
	if v := Quick(cfg, card, seenSet{}); v.Skip {
		t.Errorf("Quick skipped clean card: %q", v.Reason)
	}
}

func TestDeep(t *testing.T) {
	var cfg config.Config
	cfg.Filters.SkipWithTests = true
	cfg.Filters.SkipExternal = true
	cfg.Letter.Enabled = true

	tests := []struct {
		name        string
		detail      domain.ListingDetail
		letterReady bool
		skip        bool
		reason      string
	}{
		{
			name:        "clean detail passes",
			detail:      domain.ListingDetail{ID: "1"},
			letterReady: true,
		},
		{
			name:   "already applied",
			detail: domain.ListingDetail{ID: "1", AlreadyApplied: true},
			skip:   true, reason: "already_applied",
		},
		{
			name:   "archived",
			detail: domain.ListingDetail{ID: "1", Archived: true},
			skip:   true, reason: "archived",
		},
		{
			name:   "external apply",
			detail: domain.ListingDetail{ID: "1", ExternalApply: true},
			skip:   true, reason: "external_link",
		},
		{
			name:   "has test",
			detail: domain.ListingDetail{ID: "1", HasTest: true},
			skip:   true, reason: "has_test",
		},
		{
			name:        "letter required without generation path",
			detail:      domain.ListingDetail{ID: "1", LetterRequired: true},
			letterReady: false,
			skip:        true, reason: "letter_required_no_template",
		},
		{
			name:        "letter required with generation path",
			detail:      domain.ListingDetail{ID: "1", LetterRequired: true},
			letterReady: true,
		},
		{
			name:   "already_applied wins over archived",
			detail: domain.ListingDetail{ID: "1", AlreadyApplied: true, Archived: true},
			skip:   true, reason: "already_applied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Deep(cfg, tt.detail, tt.letterReady)
			if v.Skip != tt.skip || v.Reason != tt.reason {
				t.Errorf("Deep = {%v %q}, want {%v %q}", v.Skip, v.Reason, tt.skip, tt.reason)
			}
		})
	}
}

func TestDeepRespectsFilterToggles(t *testing.T) {
	var cfg config.Config // toggles off
	d := domain.ListingDetail{ID: "1", HasTest: true, ExternalApply: true}
	if v := Deep(cfg, d, false); v.Skip {
		t.Errorf("Deep skipped with toggles off: %q", v.Reason)
	}
}
