// Package apply drives one application attempt through the multi-path
// submission flow: click the apply control, dismiss interstitials, detect
// which surface appeared, fill it, submit, and confirm.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/page"
)

// ErrNoSubmitControl means a response surface appeared but its submit
// control could not be located. Fatal for this attempt; the listing stays
// unrecorded so a later session can retry.
var ErrNoSubmitControl = errors.New("submit control not found")

// State names the positions of the submission flow, mostly for logs.
type State int

const (
	StateIdle State = iota
	StateClicked
	StateModal
	StateResponsePage
	StateInlineSuccess
	StateQuickApply
	StateUnknown
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClicked:
		return "clicked"
	case StateModal:
		return "modal"
	case StateResponsePage:
		return "response_page"
	case StateInlineSuccess:
		return "inline_success"
	case StateQuickApply:
		return "quick_apply"
	case StateUnknown:
		return "unknown"
	default:
		return "resolved"
	}
}

// LetterSource produces the cover letter for one attempt. Wired to the
// letter pipeline; fakes in tests.
type LetterSource interface {
	Generate(ctx context.Context, profile domain.CandidateProfile, vacancyTitle, employer, description string) string
}

type Machine struct {
	sel            Selectors
	letters        LetterSource
	lettersOn      bool
	preferredTitle string
	probeTimeout   time.Duration

	state State
}

func NewMachine(sel Selectors, letters LetterSource, lettersOn bool, preferredTitle string, probeTimeout time.Duration) *Machine {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Machine{
		sel:            sel,
		letters:        letters,
		lettersOn:      lettersOn,
		preferredTitle: preferredTitle,
		probeTimeout:   probeTimeout,
	}
}

func (m *Machine) transition(to State) {
	log.Printf("[apply] %s -> %s", m.state, to)
	m.state = to
}

// Run attempts one application on the already-opened listing page.
// applied=false with a nil error means "not applicable here" (no apply
// control, or no confirmable outcome): nothing is recorded and the listing
// may be retried in a later session. A non-nil error is a submission
// failure the caller counts.
func (m *Machine) Run(ctx context.Context, pg page.Page, profile domain.CandidateProfile, detail domain.ListingDetail) (applied bool, err error) {
	m.state = StateIdle

	btn := pg.Locate(m.sel.ApplyButton)
	if n, err := btn.Count(ctx); err != nil || n == 0 {
		log.Printf("[apply] no apply control for %s", detail.ID)
		return false, nil
	}
	if err := btn.Nth(0).Click(ctx); err != nil {
		return false, fmt.Errorf("click apply: %w", err)
	}
	m.transition(StateClicked)

	// Interstitials in probe order; timeout means absent.
	m.dismiss(ctx, pg, m.sel.LocationWarning, m.sel.LocationWarningContinue, "location warning")
	m.dismiss(ctx, pg, m.sel.PhotoPrompt, m.sel.PhotoPromptContinue, "photo prompt")

	// Outcome surfaces in priority order.
	if visible, _ := pg.WaitVisible(ctx, m.sel.ResponseModal, m.probeTimeout); visible {
		m.transition(StateModal)
		return m.handleForm(ctx, pg, profile, detail)
	}

	if strings.Contains(pg.URL(), m.sel.ResponseURLHint) {
		m.transition(StateResponsePage)
		return m.handleForm(ctx, pg, profile, detail)
	}

	if n, _ := pg.Locate(m.sel.SuccessMarker).Count(ctx); n > 0 {
		m.transition(StateInlineSuccess)
		m.transition(StateResolved)
		return true, nil
	}

	if n, _ := pg.Locate(m.sel.QuickApplyNote).Count(ctx); n > 0 {
		m.transition(StateQuickApply)
		return m.handleQuickApply(ctx, pg, profile, detail)
	}

	m.transition(StateUnknown)
	log.Printf("[apply] could not confirm outcome for %s (url=%s)", detail.ID, pg.URL())
	return false, nil
}

// dismiss probes for an interstitial and clicks it away when present.
func (m *Machine) dismiss(ctx context.Context, pg page.Page, probe, action, what string) {
	visible, _ := pg.WaitVisible(ctx, probe, 2*time.Second)
	if !visible {
		return
	}
	log.Printf("[apply] dismissing %s", what)
	btn := pg.Locate(action)
	if n, _ := btn.Count(ctx); n > 0 {
		_ = btn.Nth(0).Click(ctx)
		return
	}
	_ = pg.Press(ctx, "Escape")
}

// handleForm fills the modal or full-page response form and submits it.
func (m *Machine) handleForm(ctx context.Context, pg page.Page, profile domain.CandidateProfile, detail domain.ListingDetail) (bool, error) {
	// The warning can also surface inside the form.
	m.dismiss(ctx, pg, m.sel.LocationWarning, m.sel.LocationWarningContinue, "location warning")

	if err := m.selectResume(ctx, pg); err != nil {
		return false, err
	}
	m.fillLetter(ctx, pg, profile, detail)

	submit := pg.Locate(m.sel.SubmitButton)
	if n, err := submit.Count(ctx); err != nil || n == 0 {
		return false, ErrNoSubmitControl
	}
	if err := submit.Nth(0).Click(ctx); err != nil {
		return false, fmt.Errorf("click submit: %w", err)
	}

	return m.confirm(ctx, pg, detail)
}

// confirm resolves the attempt after submit. A visible error marker is a
// failure carrying the surface's text. A success marker is success. A
// closed dialog with neither marker is treated as success; the signal is
// ambiguous and a stronger check would poll the negotiations list.
func (m *Machine) confirm(ctx context.Context, pg page.Page, detail domain.ListingDetail) (bool, error) {
	if n, _ := pg.Locate(m.sel.SuccessMarker).Count(ctx); n > 0 {
		m.transition(StateResolved)
		return true, nil
	}

	errEl := pg.Locate(m.sel.ErrorMarker)
	if n, _ := errEl.Count(ctx); n > 0 {
		text, _ := errEl.Nth(0).InnerText(ctx)
		m.transition(StateResolved)
		return false, fmt.Errorf("submission rejected: %s", strings.TrimSpace(text))
	}

	log.Printf("[apply] submitted %s, no markers after close, assuming success", detail.ID)
	m.transition(StateResolved)
	return true, nil
}

// handleQuickApply confirms a "resume delivered" outcome and, when a
// deferred letter form is offered, fills it as a secondary step. Its
// failure never downgrades the already-confirmed success.
func (m *Machine) handleQuickApply(ctx context.Context, pg page.Page, profile domain.CandidateProfile, detail domain.ListingDetail) (bool, error) {
	field := pg.Locate(m.sel.LetterField)
	if n, _ := field.Count(ctx); n > 0 && m.lettersOn {
		text := m.letters.Generate(ctx, profile, detail.Title, detail.Employer, detail.Description)
		if err := field.Nth(0).Fill(ctx, text); err != nil {
			log.Printf("[apply] deferred letter fill failed for %s: %v", detail.ID, err)
		} else if submit := pg.Locate(m.sel.SubmitButton); firstCount(ctx, submit) > 0 {
			if err := submit.Nth(0).Click(ctx); err != nil {
				log.Printf("[apply] deferred letter submit failed for %s: %v", detail.ID, err)
			}
		}
	}
	m.transition(StateResolved)
	return true, nil
}

// selectResume picks the preferred resume when the surface offers several:
// case-insensitive substring match on the configured title, else the first
// offered. No offer list means nothing to select.
func (m *Machine) selectResume(ctx context.Context, pg page.Page) error {
	items := pg.Locate(m.sel.ResumeItems)
	n, err := items.Count(ctx)
	if err != nil || n == 0 {
		return nil
	}

	if m.preferredTitle != "" {
		want := strings.ToLower(m.preferredTitle)
		for i := 0; i < n; i++ {
			text, err := items.Nth(i).InnerText(ctx)
			if err != nil {
				continue
			}
			if strings.Contains(strings.ToLower(text), want) {
				return items.Nth(i).Click(ctx)
			}
		}
	}
	return items.Nth(0).Click(ctx)
}

// fillLetter fills the letter surface when one exists and letters are on.
func (m *Machine) fillLetter(ctx context.Context, pg page.Page, profile domain.CandidateProfile, detail domain.ListingDetail) {
	field := pg.Locate(m.sel.LetterField)
	if firstCount(ctx, field) == 0 || !m.lettersOn {
		return
	}
	text := m.letters.Generate(ctx, profile, detail.Title, detail.Employer, detail.Description)
	if err := field.Nth(0).Fill(ctx, text); err != nil {
		log.Printf("[apply] letter fill failed for %s: %v", detail.ID, err)
	}
}

func firstCount(ctx context.Context, el page.Element) int {
	n, _ := el.Count(ctx)
	return n
}
