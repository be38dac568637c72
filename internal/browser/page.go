package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"autoapply-engine/internal/page"
)

// Page adapts one devtools session to the engine's automation surface.
type Page struct {
	c       *Client
	lastURL string
}

var _ page.Page = (*Page)(nil)

func NewPage(c *Client) *Page { return &Page{c: c} }

func (p *Page) Navigate(ctx context.Context, url string) error {
	var res struct {
		ErrorText string `json:"errorText"`
	}
	if err := p.c.Call(ctx, "Page.navigate", map[string]any{"url": url}, &res); err != nil {
		return err
	}
	if res.ErrorText != "" {
		return fmt.Errorf("navigate %s: %s", url, res.ErrorText)
	}
	p.lastURL = url
	return p.c.waitReady(ctx, 30*time.Second)
}

func (p *Page) Locate(selector string) page.Element {
	return &element{pg: p, selector: selector}
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	el := &element{pg: p, selector: selector}
	for {
		ok, err := el.Visible(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(150 * time.Millisecond):
		}
	}
}

func (p *Page) URL() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var href string
	if err := p.c.evaluate(ctx, "location.href", &href); err != nil || href == "" {
		return p.lastURL
	}
	p.lastURL = href
	return href
}

func (p *Page) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.c.evaluate(ctx, "document.documentElement.outerHTML", &html); err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return html, nil
}

// Press dispatches a raw key to the page. Only the keys the engine uses are
// mapped.
func (p *Page) Press(ctx context.Context, key string) error {
	code, ok := keyCodes[key]
	if !ok {
		return fmt.Errorf("unmapped key %q", key)
	}
	for _, typ := range []string{"keyDown", "keyUp"} {
		err := p.c.Call(ctx, "Input.dispatchKeyEvent", map[string]any{
			"type":                  typ,
			"key":                   key,
			"windowsVirtualKeyCode": code,
			"nativeVirtualKeyCode":  code,
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

var keyCodes = map[string]int{
	"Escape": 27,
	"Enter":  13,
	"Tab":    9,
}

type element struct {
	pg       *Page
	selector string
	index    int
}

func (e *element) Nth(i int) page.Element {
	return &element{pg: e.pg, selector: e.selector, index: i}
}

// js wraps a body expression so it sees the matched node as el, which is
// undefined when the selector matches nothing.
func (e *element) js(body string) string {
	sel, _ := json.Marshal(e.selector)
	return fmt.Sprintf("(() => { const el = document.querySelectorAll(%s)[%d]; return %s; })()",
		sel, e.index, body)
}

func (e *element) Count(ctx context.Context) (int, error) {
	sel, _ := json.Marshal(e.selector)
	var n int
	err := e.pg.c.evaluate(ctx, fmt.Sprintf("document.querySelectorAll(%s).length", sel), &n)
	return n, err
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	var ok bool
	err := e.pg.c.evaluate(ctx, e.js("!!el && el.getClientRects().length > 0"), &ok)
	return ok, err
}

func (e *element) InnerText(ctx context.Context) (string, error) {
	var text string
	err := e.pg.c.evaluate(ctx, e.js("el ? el.innerText : ''"), &text)
	return strings.TrimSpace(text), err
}

func (e *element) Click(ctx context.Context) error {
	var ok bool
	expr := e.js("el ? (el.scrollIntoView({block: 'center'}), el.click(), true) : false")
	if err := e.pg.c.evaluate(ctx, expr, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("click %q: no such element", e.selector)
	}
	return nil
}

// Fill sets the control value and fires the events frameworks listen for.
func (e *element) Fill(ctx context.Context, text string) error {
	val, _ := json.Marshal(text)
	body := fmt.Sprintf(`el ? (el.focus(), el.value = %s,
		el.dispatchEvent(new Event('input', {bubbles: true})),
		el.dispatchEvent(new Event('change', {bubbles: true})), true) : false`, val)
	var ok bool
	if err := e.pg.c.evaluate(ctx, e.js(body), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("fill %q: no such element", e.selector)
	}
	return nil
}
