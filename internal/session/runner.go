package session

import (
	"context"
	"log"
	"sort"

	"autoapply-engine/internal/config"
	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/filter"
	"autoapply-engine/internal/ledger"
	"autoapply-engine/internal/page"
)

// Collector fetches and parses site pages into domain values.
type Collector interface {
	Search(ctx context.Context, query string, pageNum int) ([]domain.ListingSummary, error)
	Detail(ctx context.Context, listingURL, id string) (domain.ListingDetail, error)
	Profile(ctx context.Context, profileURL string) (domain.CandidateProfile, error)
	BumpResume(ctx context.Context, profileURL string) error
}

// Applier drives the response flow for one listing. It reports whether the
// application was actually submitted; (false, nil) means the listing could
// not be applied to but nothing went wrong.
type Applier interface {
	Run(ctx context.Context, pg page.Page, profile domain.CandidateProfile, detail domain.ListingDetail) (bool, error)
}

// LetterReadiness reports whether cover letters can be produced for the
// given profile. Used during deep filtering to skip letter-mandatory
// listings we cannot serve.
type LetterReadiness interface {
	Ready(profile domain.CandidateProfile) bool
}

// Runner walks search pages, filters listings, applies to survivors and
// records the outcome. One Runner drives one session.
type Runner struct {
	cfg       config.Config
	pg        page.Page
	collector Collector
	applier   Applier
	letters   LetterReadiness
	led       *ledger.Ledger
	pacer     Pacer
}

func NewRunner(cfg config.Config, pg page.Page, collector Collector, applier Applier, letters LetterReadiness, led *ledger.Ledger, pacer Pacer) *Runner {
	return &Runner{
		cfg:       cfg,
		pg:        pg,
		collector: collector,
		applier:   applier,
		letters:   letters,
		led:       led,
		pacer:     pacer,
	}
}

// Run executes one full session for the given search query and returns the
// tally. Stopping conditions: the application ceiling, the page ceiling, an
// empty search page, or context cancellation. Per-listing failures are
// counted and the session moves on.
func (r *Runner) Run(ctx context.Context, query string) (*domain.SessionStats, error) {
	stats := domain.NewSessionStats()

	// Refresh the resume's publication date first so it ranks higher in
	// employer searches during the session. Best effort.
	if r.cfg.Resume.ProfileURL != "" {
		if err := r.collector.BumpResume(ctx, r.cfg.Resume.ProfileURL); err != nil {
			log.Printf("[session] resume bump failed: %v", err)
		}
	}

	var profile domain.CandidateProfile
	if r.cfg.Letter.Enabled && r.cfg.Resume.ProfileURL != "" {
		p, err := r.collector.Profile(ctx, r.cfg.Resume.ProfileURL)
		if err != nil {
			log.Printf("[session] profile fetch failed, letters degrade to templates: %v", err)
		} else {
			profile = p
		}
	}

	maxApps := r.cfg.Limits.MaxApplications

pages:
	for pageNum := 0; pageNum < r.cfg.Search.MaxPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if stats.Applied >= maxApps {
			break
		}

		cards, err := r.collector.Search(ctx, query, pageNum)
		if err != nil {
			log.Printf("[session] search page %d failed: %v", pageNum, err)
			stats.Errors++
			break
		}
		if len(cards) == 0 {
			log.Printf("[session] page %d empty, stopping", pageNum)
			break
		}
		log.Printf("[session] page %d: %d listings", pageNum, len(cards))

		for _, card := range cards {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if stats.Applied >= maxApps {
				log.Printf("[session] application ceiling %d reached", maxApps)
				break pages
			}
			r.processListing(ctx, card, profile, stats)
		}

		r.pacer.BetweenPages(ctx)
	}

	logSummary(stats)
	return stats, nil
}

func (r *Runner) processListing(ctx context.Context, card domain.ListingSummary, profile domain.CandidateProfile, stats *domain.SessionStats) {
	if v := filter.Quick(r.cfg, card, r.led); v.Skip {
		stats.CountSkip(v.Reason)
		// Listings already in the ledger keep their original record.
		if v.Reason != "already_seen" {
			if err := r.led.MarkSkipped(card.ID, card.Title, card.Employer, card.URL, v.Reason); err != nil {
				log.Printf("[session] record skip %s: %v", card.ID, err)
			}
		}
		return
	}

	detail, err := r.collector.Detail(ctx, card.URL, card.ID)
	if err != nil {
		log.Printf("[session] detail %s: %v", card.ID, err)
		stats.Errors++
		return
	}

	if v := filter.Deep(r.cfg, detail, r.letters.Ready(profile)); v.Skip {
		log.Printf("[session] skip %s (%s): %s", detail.ID, detail.Title, v.Reason)
		stats.CountSkip(v.Reason)
		if err := r.led.MarkSkipped(detail.ID, detail.Title, detail.Employer, detail.URL, v.Reason); err != nil {
			log.Printf("[session] record skip %s: %v", detail.ID, err)
		}
		return
	}

	applied, err := r.applier.Run(ctx, r.pg, profile, detail)
	if err != nil {
		log.Printf("[session] apply %s (%s): %v", detail.ID, detail.Title, err)
		stats.Errors++
		return
	}
	if !applied {
		// No response control or an unreadable flow. Not recorded, so the
		// listing is retried next session.
		stats.CountSkip("apply_failed")
		return
	}

	if err := r.led.MarkApplied(detail.ID, detail.Title, detail.Employer, detail.URL); err != nil {
		log.Printf("[session] record applied %s: %v", detail.ID, err)
		stats.Errors++
	}
	stats.Applied++
	log.Printf("[session] applied to %s at %s (%d total)", detail.Title, detail.Employer, stats.Applied)
	r.pacer.AfterSuccess(ctx, stats.Applied)
}

func logSummary(stats *domain.SessionStats) {
	log.Printf("[session] done: %d applied, %d skipped, %d errors", stats.Applied, stats.Skipped, stats.Errors)
	reasons := make([]string, 0, len(stats.SkipReasons))
	for r := range stats.SkipReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		log.Printf("[session]   skip %-28s %d", r, stats.SkipReasons[r])
	}
}
