package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/pkg/logger"
)

// OpenAI defaults. Any OpenAI-compatible server works through the base URL.
const (
	OpenAIName           = "openai"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-3.5-turbo"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAI calls the chat completions endpoint.
type OpenAI struct {
	hc      *http.Client
	baseURL string
	model   string
	apiKey  string
	log     logger.Logger
}

// Name implements quiz.Generator.
func (c *OpenAI) Name() string { return OpenAIName }

// Generate implements quiz.Generator.
func (c *OpenAI) Generate(ctx context.Context, mode quiz.Mode, question, answer string) (quiz.Result, error) {
	prompt, err := quiz.Prompt(mode, question, answer)
	if err != nil {
		return quiz.Result{}, err
	}

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: quiz.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp chatResponse
	url := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	if err := postJSON(ctx, c.hc, url, headers, body, &resp); err != nil {
		return quiz.Result{}, err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return quiz.Result{}, ErrEmptyResponse
	}
	return assemble(ctx, c.log, mode, question, answer, resp.Choices[0].Message.Content)
}
