// Package ai is a minimal client for OpenAI-compatible chat-completion
// endpoints. Model and provider names are opaque strings; retry and
// fallback ordering live in the letter pipeline, not here.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProviderError is a non-2xx answer from a provider. The letter cascade
// inspects Status to log rate limits distinctly but treats every value as
// "try the next model".
type ProviderError struct {
	Provider string
	Model    string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s/%s: status %d", e.Provider, e.Model, e.Status)
}

func (e *ProviderError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// Client talks to one provider endpoint.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *HostLimiter
}

// New creates a Client for the given chat-completions base URL. timeout is
// the per-call budget; limiter may be nil.
func New(name, baseURL, apiKey string, timeout time.Duration, limiter *HostLimiter) *Client {
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

func (c *Client) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat request and returns the assistant text.
func (c *Client) Complete(ctx context.Context, model, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, c.baseURL); err != nil {
			return "", fmt.Errorf("%s limiter: %w", c.name, err)
		}
	}

	cr := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	body, err := json.Marshal(cr)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s chat request: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ProviderError{Provider: c.name, Model: model, Status: resp.StatusCode, Body: string(b)}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%s decoding chat response: %w", c.name, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices in response", c.name)
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s: empty completion text", c.name)
	}
	return text, nil
}

// Reachable reports whether the endpoint answers at all. Any HTTP status
// counts; only transport errors fail the probe.
func (c *Client) Reachable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s unreachable: %w", c.name, err)
	}
	resp.Body.Close()
	return nil
}
