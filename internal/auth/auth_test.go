package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"autoapply-engine/internal/page"
)

type fakeElement struct {
	pg  *fakePage
	sel string
}

func (e *fakeElement) Click(context.Context) error {
	e.pg.clicks = append(e.pg.clicks, e.sel)
	return nil
}

func (e *fakeElement) Fill(_ context.Context, text string) error {
	if e.pg.fills == nil {
		e.pg.fills = map[string]string{}
	}
	e.pg.fills[e.sel] = text
	return nil
}

func (e *fakeElement) InnerText(context.Context) (string, error) {
	return e.pg.texts[e.sel], nil
}

func (e *fakeElement) Count(context.Context) (int, error) {
	if e.pg.visible[e.sel] {
		return 1, nil
	}
	return 0, nil
}

func (e *fakeElement) Visible(context.Context) (bool, error) { return e.pg.visible[e.sel], nil }
func (e *fakeElement) Nth(int) page.Element                  { return e }

// fakePage scripts visibility per selector. visibleAfter lets a selector
// become visible once another selector has been clicked.
type fakePage struct {
	visible      map[string]bool
	visibleAfter map[string]string
	texts        map[string]string
	url          string
	navigated    []string
	clicks       []string
	fills        map[string]string
}

func (p *fakePage) Navigate(_ context.Context, u string) error {
	p.navigated = append(p.navigated, u)
	return nil
}

func (p *fakePage) Locate(sel string) page.Element { return &fakeElement{pg: p, sel: sel} }

func (p *fakePage) WaitVisible(_ context.Context, sel string, _ time.Duration) (bool, error) {
	if p.visible[sel] {
		return true, nil
	}
	if dep, ok := p.visibleAfter[sel]; ok {
		for _, c := range p.clicks {
			if c == dep {
				return true, nil
			}
		}
	}
	return false, nil
}

func (p *fakePage) URL() string                              { return p.url }
func (p *fakePage) Content(context.Context) (string, error)  { return "", nil }
func (p *fakePage) Press(_ context.Context, _ string) error  { return nil }

type staticCodes struct {
	code string
	err  error
}

func (s staticCodes) WaitForCode(context.Context, time.Time) (string, error) {
	return s.code, s.err
}

func TestEnsureLoggedInSkipsWhenSessionValid(t *testing.T) {
	sel := DefaultSelectors()
	pg := &fakePage{visible: map[string]bool{sel.LoggedInMarker: true}}
	f := NewFlow(sel, staticCodes{}, "https://example.test/login", "me@example.test")

	if err := f.EnsureLoggedIn(context.Background(), pg); err != nil {
		t.Fatalf("EnsureLoggedIn: %v", err)
	}
	if len(pg.clicks) != 0 || len(pg.fills) != 0 {
		t.Fatalf("form touched despite valid session: clicks=%v fills=%v", pg.clicks, pg.fills)
	}
}

func TestEnsureLoggedInRunsCodeFlow(t *testing.T) {
	sel := DefaultSelectors()
	pg := &fakePage{
		visible: map[string]bool{
			sel.EmailField: true,
			sel.CodeField:  true,
		},
		// The account menu appears only after the code is submitted.
		visibleAfter: map[string]string{sel.LoggedInMarker: sel.SubmitCode},
	}
	f := NewFlow(sel, staticCodes{code: "482913"}, "https://example.test/login", "me@example.test")

	if err := f.EnsureLoggedIn(context.Background(), pg); err != nil {
		t.Fatalf("EnsureLoggedIn: %v", err)
	}
	if pg.fills[sel.EmailField] != "me@example.test" {
		t.Fatalf("email fill = %q", pg.fills[sel.EmailField])
	}
	if pg.fills[sel.CodeField] != "482913" {
		t.Fatalf("code fill = %q", pg.fills[sel.CodeField])
	}
	wantClicks := []string{sel.SubmitEmail, sel.SubmitCode}
	if len(pg.clicks) != len(wantClicks) || pg.clicks[0] != wantClicks[0] || pg.clicks[1] != wantClicks[1] {
		t.Fatalf("clicks = %v, want %v", pg.clicks, wantClicks)
	}
}

func TestEnsureLoggedInSurfacesCodeFetchError(t *testing.T) {
	sel := DefaultSelectors()
	pg := &fakePage{visible: map[string]bool{sel.EmailField: true, sel.CodeField: true}}
	f := NewFlow(sel, staticCodes{err: errors.New("mailbox unreachable")}, "https://example.test/login", "me@example.test")

	err := f.EnsureLoggedIn(context.Background(), pg)
	if err == nil || !strings.Contains(err.Error(), "mailbox unreachable") {
		t.Fatalf("err = %v, want mailbox failure surfaced", err)
	}
}

func TestEnsureLoggedInReportsRejection(t *testing.T) {
	sel := DefaultSelectors()
	pg := &fakePage{
		visible: map[string]bool{
			sel.EmailField:  true,
			sel.CodeField:   true,
			sel.ErrorMarker: true,
		},
		texts: map[string]string{sel.ErrorMarker: "code expired"},
	}
	f := NewFlow(sel, staticCodes{code: "482913"}, "https://example.test/login", "me@example.test")

	err := f.EnsureLoggedIn(context.Background(), pg)
	if err == nil || !strings.Contains(err.Error(), "code expired") {
		t.Fatalf("err = %v, want rejection message", err)
	}
}

func TestEnsureLoggedInRequiresEmail(t *testing.T) {
	sel := DefaultSelectors()
	pg := &fakePage{visible: map[string]bool{}}
	f := NewFlow(sel, staticCodes{}, "https://example.test/login", "")

	if err := f.EnsureLoggedIn(context.Background(), pg); err == nil {
		t.Fatal("expected configuration error for empty email")
	}
}
