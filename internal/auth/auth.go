// Package auth drives the email-plus-code sign-in flow. The site mails a
// short code after the address is submitted; the code is pulled over IMAP
// and typed into the form.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"autoapply-engine/internal/page"
)

// Selectors locates the sign-in form controls. Defaults match the target
// site's data-qa markup.
type Selectors struct {
	LoggedInMarker string
	EmailField     string
	SubmitEmail    string
	CodeField      string
	SubmitCode     string
	ErrorMarker    string
}

func DefaultSelectors() Selectors {
	return Selectors{
		LoggedInMarker: "[data-qa='mainmenu_myResumes']",
		EmailField:     "[data-qa='login-input-username']",
		SubmitEmail:    "[data-qa='account-signup-submit']",
		CodeField:      "[data-qa='otp-code-input']",
		SubmitCode:     "[data-qa='otp-code-submit']",
		ErrorMarker:    "[data-qa='account-login-error']",
	}
}

// CodeSource produces the login code mailed after the address is submitted.
type CodeSource interface {
	WaitForCode(ctx context.Context, since time.Time) (string, error)
}

type Flow struct {
	sel      Selectors
	codes    CodeSource
	loginURL string
	email    string
}

func NewFlow(sel Selectors, codes CodeSource, loginURL, email string) *Flow {
	return &Flow{sel: sel, codes: codes, loginURL: loginURL, email: email}
}

// EnsureLoggedIn is a no-op when the session cookie is still valid.
// Otherwise it runs the full email-plus-code flow.
func (f *Flow) EnsureLoggedIn(ctx context.Context, pg page.Page) error {
	if err := pg.Navigate(ctx, f.loginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if ok, err := pg.WaitVisible(ctx, f.sel.LoggedInMarker, 3*time.Second); err != nil {
		return err
	} else if ok {
		log.Printf("[auth] existing session still valid")
		return nil
	}
	return f.login(ctx, pg)
}

func (f *Flow) login(ctx context.Context, pg page.Page) error {
	if f.email == "" {
		return errors.New("auth.email is not configured")
	}
	log.Printf("[auth] signing in as %s", f.email)

	if ok, err := pg.WaitVisible(ctx, f.sel.EmailField, 10*time.Second); err != nil {
		return err
	} else if !ok {
		return errors.New("login form did not appear")
	}
	if err := pg.Locate(f.sel.EmailField).Fill(ctx, f.email); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	requested := time.Now()
	if err := pg.Locate(f.sel.SubmitEmail).Click(ctx); err != nil {
		return fmt.Errorf("submit email: %w", err)
	}

	if ok, err := pg.WaitVisible(ctx, f.sel.CodeField, 15*time.Second); err != nil {
		return err
	} else if !ok {
		return errors.New("code prompt did not appear")
	}

	codeCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	code, err := f.codes.WaitForCode(codeCtx, requested)
	if err != nil {
		return fmt.Errorf("fetch login code: %w", err)
	}
	log.Printf("[auth] received login code")

	if err := pg.Locate(f.sel.CodeField).Fill(ctx, code); err != nil {
		return fmt.Errorf("fill code: %w", err)
	}
	if err := pg.Locate(f.sel.SubmitCode).Click(ctx); err != nil {
		return fmt.Errorf("submit code: %w", err)
	}

	if ok, err := pg.WaitVisible(ctx, f.sel.LoggedInMarker, 15*time.Second); err != nil {
		return err
	} else if ok {
		log.Printf("[auth] signed in")
		return nil
	}
	if visible, _ := pg.WaitVisible(ctx, f.sel.ErrorMarker, time.Second); visible {
		msg, _ := pg.Locate(f.sel.ErrorMarker).InnerText(ctx)
		return fmt.Errorf("sign-in rejected: %s", msg)
	}
	return errors.New("sign-in did not complete")
}
