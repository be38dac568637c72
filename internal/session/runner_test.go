package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"autoapply-engine/internal/config"
	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/ledger"
	"autoapply-engine/internal/page"
)

type fakeCollector struct {
	pages      [][]domain.ListingSummary
	details    map[string]domain.ListingDetail
	detailErrs map[string]error
	profile    domain.CandidateProfile
	profileErr error
	bumpErr    error

	searchCalls  int
	profileCalls int
	bumpCalls    int
}

func (f *fakeCollector) Search(_ context.Context, _ string, pageNum int) ([]domain.ListingSummary, error) {
	f.searchCalls++
	if pageNum >= len(f.pages) {
		return nil, nil
	}
	return f.pages[pageNum], nil
}

func (f *fakeCollector) Detail(_ context.Context, _, id string) (domain.ListingDetail, error) {
	if err := f.detailErrs[id]; err != nil {
		return domain.ListingDetail{}, err
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return domain.ListingDetail{ID: id}, nil
}

func (f *fakeCollector) Profile(context.Context, string) (domain.CandidateProfile, error) {
	f.profileCalls++
	return f.profile, f.profileErr
}

func (f *fakeCollector) BumpResume(context.Context, string) error {
	f.bumpCalls++
	return f.bumpErr
}

type fakeApplier struct {
	applied map[string]bool
	errs    map[string]error
	calls   []string
}

func (f *fakeApplier) Run(_ context.Context, _ page.Page, _ domain.CandidateProfile, d domain.ListingDetail) (bool, error) {
	f.calls = append(f.calls, d.ID)
	if err := f.errs[d.ID]; err != nil {
		return false, err
	}
	return f.applied[d.ID], nil
}

type alwaysReady struct{ ready bool }

func (a alwaysReady) Ready(domain.CandidateProfile) bool { return a.ready }

type noopPacer struct {
	successes int
	pageGaps  int
}

func (p *noopPacer) AfterSuccess(context.Context, int) { p.successes++ }
func (p *noopPacer) BetweenPages(context.Context)      { p.pageGaps++ }

func testConfig() config.Config {
	var cfg config.Config
	cfg.Search.MaxPages = 3
	cfg.Limits.MaxApplications = 10
	cfg.Filters.SkipWithTests = true
	cfg.Filters.SkipExternal = true
	return cfg
}

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	return led
}

func card(id, title, employer string) domain.ListingSummary {
	return domain.ListingSummary{ID: id, Title: title, Employer: employer, URL: "https://example.test/vacancy/" + id}
}

func TestRunAppliesAndRecords(t *testing.T) {
	led := openLedger(t)
	col := &fakeCollector{
		pages: [][]domain.ListingSummary{{
			card("1", "Go Developer", "Acme"),
			card("2", "Backend Engineer", "Globex"),
		}},
		details: map[string]domain.ListingDetail{
			"1": {ID: "1", Title: "Go Developer", Employer: "Acme", URL: "u1"},
			"2": {ID: "2", Title: "Backend Engineer", Employer: "Globex", URL: "u2", HasTest: true},
		},
	}
	app := &fakeApplier{applied: map[string]bool{"1": true}}
	pacer := &noopPacer{}

	r := NewRunner(testConfig(), nil, col, app, alwaysReady{true}, led, pacer)
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Applied != 1 {
		t.Fatalf("Applied = %d, want 1", stats.Applied)
	}
	if stats.SkipReasons["has_test"] != 1 {
		t.Fatalf("SkipReasons = %v, want has_test once", stats.SkipReasons)
	}
	if ok, _ := led.HasApplied("1"); !ok {
		t.Fatal("listing 1 not recorded as applied")
	}
	if ok, _ := led.HasSeen("2"); !ok {
		t.Fatal("skipped listing 2 not recorded")
	}
	if pacer.successes != 1 {
		t.Fatalf("pacer successes = %d, want 1", pacer.successes)
	}
}

func TestRunAlreadySeenNotReRecorded(t *testing.T) {
	led := openLedger(t)
	if err := led.MarkSkipped("1", "Go Developer", "Acme", "u1", "has_test"); err != nil {
		t.Fatal(err)
	}
	col := &fakeCollector{pages: [][]domain.ListingSummary{{card("1", "Go Developer", "Acme")}}}
	app := &fakeApplier{}

	r := NewRunner(testConfig(), nil, col, app, alwaysReady{true}, led, &noopPacer{})
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SkipReasons["already_seen"] != 1 {
		t.Fatalf("SkipReasons = %v, want already_seen once", stats.SkipReasons)
	}
	if len(app.calls) != 0 {
		t.Fatalf("applier called for an already seen listing: %v", app.calls)
	}
	// The original skip record must survive untouched.
	st, err := led.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalSkipped != 1 {
		t.Fatalf("TotalSkipped = %d, want 1", st.TotalSkipped)
	}
}

func TestRunApplyFailedNotRecorded(t *testing.T) {
	led := openLedger(t)
	col := &fakeCollector{pages: [][]domain.ListingSummary{{card("1", "Go Developer", "Acme")}}}
	app := &fakeApplier{} // applied stays false

	r := NewRunner(testConfig(), nil, col, app, alwaysReady{true}, led, &noopPacer{})
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SkipReasons["apply_failed"] != 1 {
		t.Fatalf("SkipReasons = %v, want apply_failed once", stats.SkipReasons)
	}
	if seen, _ := led.HasSeen("1"); seen {
		t.Fatal("apply_failed listing must stay out of the ledger so it is retried")
	}
}

func TestRunCountsErrorsAndContinues(t *testing.T) {
	led := openLedger(t)
	col := &fakeCollector{
		pages: [][]domain.ListingSummary{{
			card("1", "Go Developer", "Acme"),
			card("2", "Backend Engineer", "Globex"),
			card("3", "Platform Engineer", "Initech"),
		}},
		detailErrs: map[string]error{"1": errors.New("timeout")},
	}
	app := &fakeApplier{
		applied: map[string]bool{"3": true},
		errs:    map[string]error{"2": errors.New("form hung")},
	}

	r := NewRunner(testConfig(), nil, col, app, alwaysReady{true}, led, &noopPacer{})
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Errors != 2 {
		t.Fatalf("Errors = %d, want 2", stats.Errors)
	}
	if stats.Applied != 1 {
		t.Fatalf("Applied = %d, want 1", stats.Applied)
	}
	if seen, _ := led.HasSeen("2"); seen {
		t.Fatal("errored listing must not be recorded")
	}
}

func TestRunStopsAtApplicationCeiling(t *testing.T) {
	led := openLedger(t)
	cfg := testConfig()
	cfg.Limits.MaxApplications = 2
	col := &fakeCollector{
		pages: [][]domain.ListingSummary{
			{card("1", "A", "X"), card("2", "B", "Y"), card("3", "C", "Z")},
			{card("4", "D", "W")},
		},
	}
	app := &fakeApplier{applied: map[string]bool{"1": true, "2": true, "3": true, "4": true}}

	r := NewRunner(cfg, nil, col, app, alwaysReady{true}, led, &noopPacer{})
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Applied != 2 {
		t.Fatalf("Applied = %d, want 2", stats.Applied)
	}
	if len(app.calls) != 2 {
		t.Fatalf("applier calls = %v, want exactly 2", app.calls)
	}
	if col.searchCalls != 1 {
		t.Fatalf("searchCalls = %d, want 1 (ceiling hit mid page)", col.searchCalls)
	}
}

func TestRunStopsOnEmptyPage(t *testing.T) {
	led := openLedger(t)
	col := &fakeCollector{
		pages: [][]domain.ListingSummary{
			{card("1", "A", "X")},
			{}, // site ran out of results
			{card("9", "never", "reached")},
		},
	}
	app := &fakeApplier{applied: map[string]bool{"1": true}}

	r := NewRunner(testConfig(), nil, col, app, alwaysReady{true}, led, &noopPacer{})
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if col.searchCalls != 2 {
		t.Fatalf("searchCalls = %d, want 2", col.searchCalls)
	}
	if stats.Applied != 1 {
		t.Fatalf("Applied = %d, want 1", stats.Applied)
	}
}

func TestRunFetchesProfileOnceWhenLettersEnabled(t *testing.T) {
	led := openLedger(t)
	cfg := testConfig()
	cfg.Letter.Enabled = true
	cfg.Resume.ProfileURL = "https://example.test/resume/abc"
	col := &fakeCollector{
		pages:   [][]domain.ListingSummary{{card("1", "A", "X"), card("2", "B", "Y")}},
		profile: domain.CandidateProfile{Title: "Go Developer"},
	}
	app := &fakeApplier{applied: map[string]bool{"1": true, "2": true}}

	r := NewRunner(cfg, nil, col, app, alwaysReady{true}, led, &noopPacer{})
	if _, err := r.Run(context.Background(), "go"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if col.profileCalls != 1 {
		t.Fatalf("profileCalls = %d, want 1", col.profileCalls)
	}
}

func TestRunProfileFetchFailureDegrades(t *testing.T) {
	led := openLedger(t)
	cfg := testConfig()
	cfg.Letter.Enabled = true
	cfg.Resume.ProfileURL = "https://example.test/resume/abc"
	col := &fakeCollector{
		pages:      [][]domain.ListingSummary{{card("1", "A", "X")}},
		profileErr: errors.New("resume page moved"),
	}
	app := &fakeApplier{applied: map[string]bool{"1": true}}

	r := NewRunner(cfg, nil, col, app, alwaysReady{true}, led, &noopPacer{})
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Applied != 1 {
		t.Fatalf("Applied = %d, want 1 despite profile failure", stats.Applied)
	}
}

func TestRunBumpsResumeBeforeWalking(t *testing.T) {
	led := openLedger(t)
	cfg := testConfig()
	cfg.Resume.ProfileURL = "https://example.test/resume/abc"
	col := &fakeCollector{pages: [][]domain.ListingSummary{{card("1", "A", "X")}}}
	app := &fakeApplier{applied: map[string]bool{"1": true}}

	r := NewRunner(cfg, nil, col, app, alwaysReady{true}, led, &noopPacer{})
	if _, err := r.Run(context.Background(), "go"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if col.bumpCalls != 1 {
		t.Fatalf("bumpCalls = %d, want 1", col.bumpCalls)
	}
}

func TestRunBumpFailureIsNonFatal(t *testing.T) {
	led := openLedger(t)
	cfg := testConfig()
	cfg.Resume.ProfileURL = "https://example.test/resume/abc"
	col := &fakeCollector{
		pages:   [][]domain.ListingSummary{{card("1", "A", "X")}},
		bumpErr: errors.New("update control rejected the click"),
	}
	app := &fakeApplier{applied: map[string]bool{"1": true}}

	r := NewRunner(cfg, nil, col, app, alwaysReady{true}, led, &noopPacer{})
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Applied != 1 {
		t.Fatalf("Applied = %d, want 1 despite bump failure", stats.Applied)
	}
	if stats.Errors != 0 {
		t.Fatalf("Errors = %d, bump failure must not count", stats.Errors)
	}
}

func TestRunSkipsBumpWithoutProfileURL(t *testing.T) {
	led := openLedger(t)
	col := &fakeCollector{pages: [][]domain.ListingSummary{{card("1", "A", "X")}}}
	app := &fakeApplier{applied: map[string]bool{"1": true}}

	r := NewRunner(testConfig(), nil, col, app, alwaysReady{true}, led, &noopPacer{})
	if _, err := r.Run(context.Background(), "go"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if col.bumpCalls != 0 {
		t.Fatalf("bumpCalls = %d, want 0", col.bumpCalls)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	led := openLedger(t)
	col := &fakeCollector{pages: [][]domain.ListingSummary{{card("1", "A", "X")}}}
	app := &fakeApplier{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner(testConfig(), nil, col, app, alwaysReady{true}, led, &noopPacer{})
	if _, err := r.Run(ctx, "go"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if col.searchCalls != 0 {
		t.Fatal("search attempted after cancellation")
	}
}

func TestRunDeepSkipWhenLettersNotReady(t *testing.T) {
	led := openLedger(t)
	col := &fakeCollector{
		pages: [][]domain.ListingSummary{{card("1", "Go Developer", "Acme")}},
		details: map[string]domain.ListingDetail{
			"1": {ID: "1", Title: "Go Developer", Employer: "Acme", URL: "u1", LetterRequired: true},
		},
	}
	app := &fakeApplier{applied: map[string]bool{"1": true}}

	r := NewRunner(testConfig(), nil, col, app, alwaysReady{false}, led, &noopPacer{})
	stats, err := r.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SkipReasons["letter_required_no_template"] != 1 {
		t.Fatalf("SkipReasons = %v", stats.SkipReasons)
	}
	if len(app.calls) != 0 {
		t.Fatal("applier called for a letter-mandatory listing without letter support")
	}
}
