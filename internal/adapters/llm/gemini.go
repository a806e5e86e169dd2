package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/pkg/logger"
)

// Gemini defaults.
const (
	GeminiName           = "gemini"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.0-flash"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	hc      *http.Client
	baseURL string
	model   string
	apiKey  string
	log     logger.Logger
}

// Name implements quiz.Generator.
func (c *Gemini) Name() string { return GeminiName }

// Generate implements quiz.Generator.
func (c *Gemini) Generate(ctx context.Context, mode quiz.Mode, question, answer string) (quiz.Result, error) {
	prompt, err := quiz.Prompt(mode, question, answer)
	if err != nil {
		return quiz.Result{}, err
	}

	var body geminiRequest
	body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: quiz.SystemPrompt}}}
	body.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	body.GenerationConfig.Temperature = temperature

	endpoint := strings.TrimRight(c.baseURL, "/") + "/models/" + url.PathEscape(c.model) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": c.apiKey}

	var resp geminiResponse
	if err := postJSON(ctx, c.hc, endpoint, headers, body, &resp); err != nil {
		return quiz.Result{}, err
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return quiz.Result{}, ErrEmptyResponse
	}
	return assemble(ctx, c.log, mode, question, answer, text.String())
}
