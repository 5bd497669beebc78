// Package serp wraps the external search API. The provider is opaque; only
// organic result shape {title, link, snippet, position} is consumed.
package serp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"promoscout/internal/breaker"
)

// Result is one organic search result.
type Result struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

// Client is a minimal HTTP client for the search API, guarded by a circuit
// breaker and a minimum inter-call spacing limiter.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	br      *breaker.Breaker
	limiter *rate.Limiter
}

// NewClient creates a search client. br must be the breaker instance
// dedicated to the search dependency.
func NewClient(baseURL, apiKey string, br *breaker.Breaker, limiter *rate.Limiter) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		br:      br,
		limiter: limiter,
	}
}

// windowParam maps a time-window name to the provider's date-restrict value.
func windowParam(window string) string {
	switch window {
	case "day":
		return "qdr:d"
	case "month":
		return "qdr:m"
	default: // week
		return "qdr:w"
	}
}

// Search runs one query restricted to the given time window.
// API: POST /search {"q": ..., "tbs": ...}
func (c *Client) Search(ctx context.Context, query, window string) ([]Result, error) {
	if !c.br.Allow() {
		return nil, breaker.ErrOpen
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	results, err := c.search(ctx, query, window)
	if err != nil {
		c.br.RecordFailure()
		return nil, err
	}
	c.br.RecordSuccess()
	return results, nil
}

func (c *Client) search(ctx context.Context, query, window string) ([]Result, error) {
	payload, err := json.Marshal(map[string]string{
		"q":   query,
		"tbs": windowParam(window),
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("serp: status %d", resp.StatusCode)
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Organic, nil
}
