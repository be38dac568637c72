// Package browser is a Chrome DevTools Protocol bridge implementing the
// page automation surface. It attaches to a browser started with
// --remote-debugging-port and drives the first page target over the
// protocol's websocket.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

type target struct {
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

type cdpRequest struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type cdpResponse struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// Client is one devtools websocket session against one page target.
type Client struct {
	ws *websocket.Conn

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan cdpResponse

	closeOnce sync.Once
	done      chan struct{}
}

// Connect attaches to the browser's debug endpoint (http://host:port) and
// opens a session on its first page target.
func Connect(ctx context.Context, debugURL string) (*Client, error) {
	wsURL, err := pageTargetURL(ctx, debugURL)
	if err != nil {
		return nil, err
	}
	conf, err := websocket.NewConfig(wsURL, debugURL)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	ws, err := websocket.DialConfig(conf)
	if err != nil {
		return nil, fmt.Errorf("devtools dial: %w", err)
	}
	// Devtools messages can exceed the default frame payload comfort zone
	// when page HTML is large.
	ws.MaxPayloadBytes = 64 << 20

	c := &Client{
		ws:      ws,
		pending: make(map[int64]chan cdpResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func pageTargetURL(ctx context.Context, debugURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, debugURL+"/json", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("devtools discovery: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var targets []target
	if err := json.Unmarshal(body, &targets); err != nil {
		return "", fmt.Errorf("devtools target list: %w", err)
	}
	for _, t := range targets {
		if t.Type == "page" && t.WebSocketDebuggerURL != "" {
			return t.WebSocketDebuggerURL, nil
		}
	}
	return "", errors.New("no page target exposed by the browser")
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var resp cdpResponse
		if err := websocket.JSON.Receive(c.ws, &resp); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[browser] devtools read: %v", err)
			}
			return
		}
		if resp.Method != "" {
			// Protocol event, nothing subscribes to those.
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// Call issues one protocol command and decodes the result into out when out
// is non-nil.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = b
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan cdpResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	if err := websocket.JSON.Send(c.ws, cdpRequest{ID: id, Method: method, Params: raw}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("devtools send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	case <-c.done:
		return errors.New("devtools connection closed")
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out != nil && len(resp.Result) > 0 {
			return json.Unmarshal(resp.Result, out)
		}
		return nil
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// evaluate runs a javascript expression in the page and returns its value.
type evalResult struct {
	Result struct {
		Type    string          `json:"type"`
		Value   json.RawMessage `json:"value"`
		Subtype string          `json:"subtype"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text string `json:"text"`
	} `json:"exceptionDetails"`
}

func (c *Client) evaluate(ctx context.Context, expr string, out any) error {
	var res evalResult
	err := c.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expr,
		"returnByValue": true,
	}, &res)
	if err != nil {
		return err
	}
	if res.ExceptionDetails != nil {
		return fmt.Errorf("page script: %s", res.ExceptionDetails.Text)
	}
	if out == nil || len(res.Result.Value) == 0 {
		return nil
	}
	return json.Unmarshal(res.Result.Value, out)
}

// waitReady polls document.readyState after navigation.
func (c *Client) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var state string
		if err := c.evaluate(ctx, "document.readyState", &state); err == nil {
			if state == "complete" || state == "interactive" {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return errors.New("page did not finish loading")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
