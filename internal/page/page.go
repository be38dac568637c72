// Package page defines the automation surface the engine drives. The
// devtools driver in internal/browser implements it; the rest of the
// engine only depends on these capabilities.
package page

import (
	"context"
	"time"
)

// Element is a handle to elements matched by a selector. Lookups are lazy:
// Count reports how many matches exist at call time.
type Element interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error
	InnerText(ctx context.Context) (string, error)
	Count(ctx context.Context) (int, error)
	Visible(ctx context.Context) (bool, error)
	Nth(i int) Element
}

// Page is one browsing context.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Locate(selector string) Element
	// WaitVisible blocks until the selector is visible or the timeout
	// elapses. Timeout means "absent", not an error.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	URL() string
	// Content returns the current HTML snapshot for the extraction layer.
	Content(ctx context.Context) (string, error)
	Press(ctx context.Context, key string) error
}
