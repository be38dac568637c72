// Package filter holds the two rejection stages: quick runs on every search
// card using only in-memory state and the ledger, deep runs after the
// listing page has already been fetched.
package filter

import (
	"strings"

	"autoapply-engine/internal/config"
	"autoapply-engine/internal/domain"
)

// Verdict is the outcome of one filter stage. Reason is set only when
// Skip is true and becomes the ledger record's reason.
type Verdict struct {
	Skip   bool
	Reason string
}

// SeenChecker is the slice of the ledger quick filtering needs.
type SeenChecker interface {
	HasSeen(id string) (bool, error)
}

// Quick rejects a listing from its search card alone. No page access.
// A ledger read error is treated as "not seen"; the deep stage and the
// ledger upsert still protect against duplicates.
func Quick(cfg config.Config, card domain.ListingSummary, seen SeenChecker) Verdict {
	if ok, err := seen.HasSeen(card.ID); err == nil && ok {
		return Verdict{Skip: true, Reason: "already_seen"}
	}

	titleLower := strings.ToLower(card.Title)
	for _, kw := range cfg.Filters.BlockedKeywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(titleLower, strings.ToLower(kw)) {
			return Verdict{Skip: true, Reason: "blocked_keyword:" + kw}
		}
	}

	employerLower := strings.ToLower(card.Employer)
	for _, emp := range cfg.Filters.BlockedEmployers {
		emp = strings.TrimSpace(emp)
		if emp == "" {
			continue
		}
		if strings.Contains(employerLower, strings.ToLower(emp)) {
			return Verdict{Skip: true, Reason: "blocked_employer:" + emp}
		}
	}

	return Verdict{}
}

// Deep rejects a listing from its detail snapshot. letterReady reports
// whether the letter pipeline can produce text for a listing that demands
// a cover letter.
func Deep(cfg config.Config, d domain.ListingDetail, letterReady bool) Verdict {
	if d.AlreadyApplied {
		return Verdict{Skip: true, Reason: "already_applied"}
	}
	if d.Archived {
		return Verdict{Skip: true, Reason: "archived"}
	}
	if d.ExternalApply && cfg.Filters.SkipExternal {
		return Verdict{Skip: true, Reason: "external_link"}
	}
	if d.HasTest && cfg.Filters.SkipWithTests {
		return Verdict{Skip: true, Reason: "has_test"}
	}
	if d.LetterRequired && (!cfg.Letter.Enabled || !letterReady) {
		return Verdict{Skip: true, Reason: "letter_required_no_template"}
	}
	return Verdict{}
}
