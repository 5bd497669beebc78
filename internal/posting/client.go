// Package posting wraps the external paid posting service. Submission is
// outbound only; completion is pushed back via webhook, never polled.
package posting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"promoscout/internal/breaker"
	"promoscout/internal/model"
)

// TaskResult is the posting service's answer to a create-task request.
type TaskResult struct {
	ExternalID string
	// Raw response body, kept as an audit snapshot on the task.
	Raw string
}

// Client is a minimal HTTP client for the posting service API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	br      *breaker.Breaker
	limiter *rate.Limiter
}

// New creates a posting client. baseURL should have no trailing slash.
func New(baseURL, apiKey string, br *breaker.Breaker, limiter *rate.Limiter) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		br:      br,
		limiter: limiter,
	}
}

func (c *Client) guard(ctx context.Context, fn func() error) error {
	if !c.br.Allow() {
		return breaker.ErrOpen
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := fn(); err != nil {
		c.br.RecordFailure()
		return err
	}
	c.br.RecordSuccess()
	return nil
}

// CreateTask submits one posting task against a target URL.
func (c *Client) CreateTask(ctx context.Context, targetURL, content string, kind model.TaskKind, upvotes int) (TaskResult, error) {
	if c == nil {
		return TaskResult{}, errors.New("nil posting client")
	}
	body, err := json.Marshal(map[string]any{
		"target_url": targetURL,
		"content":    content,
		"kind":       string(kind),
		"upvotes":    upvotes,
	})
	if err != nil {
		return TaskResult{}, err
	}
	var res TaskResult
	err = c.guard(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("create task failed: status=%d body=%s", resp.StatusCode, string(raw))
		}
		var out struct {
			TaskID string `json:"task_id"`
			ID     string `json:"id"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		id := out.TaskID
		if id == "" {
			id = out.ID
		}
		if id == "" {
			return errors.New("create task: missing task id in response")
		}
		res = TaskResult{ExternalID: id, Raw: string(raw)}
		return nil
	})
	return res, err
}

// CancelTask asks the service to cancel a previously created task.
func (c *Client) CancelTask(ctx context.Context, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return errors.New("empty task id")
	}
	return c.guard(ctx, func() error {
		url := c.baseURL + "/tasks/" + externalID + "/cancel"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("cancel task failed: status=%d body=%s", resp.StatusCode, string(b))
		}
		return nil
	})
}

// Balance returns the remaining account balance.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var balance float64
	err := c.guard(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/balance", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("balance failed: status=%d body=%s", resp.StatusCode, string(b))
		}
		var out struct {
			Balance float64 `json:"balance"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		balance = out.Balance
		return nil
	})
	return balance, err
}
