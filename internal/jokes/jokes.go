// Package jokes fetches random jokes from api.chucknorris.io.
package jokes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.chucknorris.io"

// Option configures the Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, mainly for
// tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to the joke API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client with a 10 second request timeout.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Random fetches one random joke.
func (c *Client) Random(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jokes/random", nil)
	if err != nil {
		return "", fmt.Errorf("jokes: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("jokes: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jokes: unexpected status %s", resp.Status)
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("jokes: decode: %w", err)
	}
	if body.Value == "" {
		return "", fmt.Errorf("jokes: empty joke in response")
	}
	return body.Value, nil
}
