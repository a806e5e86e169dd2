// Package llm generates quiz content through hosted language models.
//
// Clients are plain values carrying their credential; a new one is built per
// request by Factory.ForKey, so no client state is shared between users.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/pkg/logger"
)

const (
	temperature     = 0.7
	maxErrorBodyLen = 512
	defaultTimeout  = 60 * time.Second
)

// postJSON sends body to url and decodes a 200 response into out.
func postJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string, body, out any) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(data) > maxErrorBodyLen {
			data = data[:maxErrorBodyLen]
		}
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}
	return nil
}

// assemble parses model text and builds the quiz.
func assemble(ctx context.Context, log logger.Logger, mode quiz.Mode, question, answer, text string) (quiz.Result, error) {
	content, err := quiz.ParseContent(text)
	if err != nil {
		log.Warn(ctx, "unparseable model output", logger.String("raw", truncate(text, maxErrorBodyLen)), logger.Error(err))
		return quiz.Result{}, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // option shuffle only
	return quiz.Assemble(mode, question, answer, content, rng)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
