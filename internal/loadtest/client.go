package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// errRetry marks responses that asked the caller to try again.
var errRetry = errors.New("retry")

// StatusError is a non-success HTTP response.
type StatusError struct {
	Status int
	Code   string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d (%s): %s", e.Status, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == "retry" {
		return errRetry
	}
	return nil
}

// Client talks to the quiz HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a client with a request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, want int, headers ...string) error {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		se := &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
		var e struct {
			Code string `json:"code"`
		}
		if json.Unmarshal(data, &e) == nil {
			se.Code = e.Code
		}
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, StatusOK)
}

// DeckSummary mirrors a deck listing row.
type DeckSummary struct {
	Name  string `json:"name"`
	Cards int    `json:"cards"`
}

// Decks lists loaded decks.
func (c *Client) Decks(ctx context.Context) ([]DeckSummary, error) {
	var out struct {
		Decks []DeckSummary `json:"decks"`
	}
	err := c.do(ctx, http.MethodGet, "/api/decks", nil, &out, StatusOK)
	return out.Decks, err
}

// Session mirrors the session progress payload.
type Session struct {
	ID        string  `json:"session_id"`
	Cards     int     `json:"cards"`
	Served    int     `json:"served"`
	Remaining int     `json:"remaining"`
	Score     float64 `json:"score"`
}

// StartSession opens a session on deck.
func (c *Client) StartSession(ctx context.Context, deck string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"deck": deck}, &s, StatusCreated)
	return s, err
}

// Next draws a quiz and returns the card index.
func (c *Client) Next(ctx context.Context, session, mode string) (int, error) {
	var q struct {
		Index int `json:"index"`
	}
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+session+"/next", map[string]string{"mode": mode}, &q, StatusOK)
	return q.Index, err
}

// AddScore adjusts the session score.
func (c *Client) AddScore(ctx context.Context, session string, delta float64) (float64, error) {
	var out struct {
		Score float64 `json:"score"`
	}
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+session+"/score", map[string]float64{"delta": delta}, &out, StatusOK)
	return out.Score, err
}

// SubmitSession sends the session score to the leaderboard. The key makes
// retries of the same submit safe.
func (c *Client) SubmitSession(ctx context.Context, session, name, key string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+session+"/submit", map[string]string{"name": name}, nil, StatusOK,
		"Idempotency-Key", key)
}

// EndSession discards a session.
func (c *Client) EndSession(ctx context.Context, session string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+session, nil, nil, http.StatusNoContent)
}

// Leaderboard fetches the table.
func (c *Client) Leaderboard(ctx context.Context) ([]Entry, error) {
	var out struct {
		Entries []Entry `json:"entries"`
	}
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", nil, &out, StatusOK)
	return out.Entries, err
}

// withRetry repeats fn while the server answers with a retry code.
func withRetry(ctx context.Context, retries *atomic.Int64, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if !errors.Is(err, errRetry) || attempt >= MaxRetries {
			return err
		}
		if retries != nil {
			retries.Add(1)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(RetryDelay):
		}
	}
}
