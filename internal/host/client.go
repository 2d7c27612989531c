// Package host is a thin HTTP client for the runtime that owns sessions,
// messages, and model providers. Every call is a narrow contract from the
// titler's point of view; callers decide how failures degrade.
package host

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

const (
	requestTimeout  = 30 * time.Second
	generateTimeout = 90 * time.Second
)

// Client talks to the host runtime's HTTP API.
type Client struct {
	baseURL  string
	http     *http.Client
	generate *http.Client
}

// NewClient creates a client for the host API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: requestTimeout},
		generate: &http.Client{Timeout: generateTimeout},
	}
}

// GetSession fetches a session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.do(ctx, c.http, http.MethodGet, "/session/"+id, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListMessages returns the session's messages in conversation order.
func (c *Client) ListMessages(ctx context.Context, id string) ([]Message, error) {
	var messages []Message
	if err := c.do(ctx, c.http, http.MethodGet, "/session/"+id+"/message", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// UpdateSessionTitle rewrites the session's title.
func (c *Client) UpdateSessionTitle(ctx context.Context, id, title string) error {
	body := map[string]string{"title": title}
	return c.do(ctx, c.http, http.MethodPatch, "/session/"+id, body, nil)
}

// CreateSession creates a throwaway session for a single generation request.
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.do(ctx, c.http, http.MethodPost, "/session", map[string]any{}, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, fmt.Errorf("host returned session without id")
	}
	return &session, nil
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, c.http, http.MethodDelete, "/session/"+id, nil, nil)
}

// Generate issues a single prompt against the given session and returns the
// host's response. A nil model uses the host's default.
func (c *Client) Generate(ctx context.Context, sessionID, prompt string, model *ModelRef) (*GenerateResponse, error) {
	body := map[string]any{
		"parts": []MessagePart{{Type: "text", Text: prompt}},
	}
	if model != nil {
		body["providerID"] = model.ProviderID
		body["modelID"] = model.ModelID
	}

	var resp GenerateResponse
	if err := c.do(ctx, c.generate, http.MethodPost, "/session/"+sessionID+"/message", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListConnectedProviders returns the ids of providers the user is logged
// into.
func (c *Client) ListConnectedProviders(ctx context.Context) ([]string, error) {
	var connected []string
	if err := c.do(ctx, c.http, http.MethodGet, "/provider/connected", nil, &connected); err != nil {
		return nil, err
	}
	return connected, nil
}

// ListProvidersWithModels returns the full provider catalog.
func (c *Client) ListProvidersWithModels(ctx context.Context) ([]Provider, error) {
	var payload struct {
		Providers []Provider `json:"providers"`
	}
	if err := c.do(ctx, c.http, http.MethodGet, "/provider", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Providers, nil
}

// do executes one JSON request against the host API.
func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call host at %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("host returned %d for %s %s: %s", resp.StatusCode, method, path, truncateBody(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w (body: %s)", err, truncateBody(respBody))
		}
	}

	return nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
