package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/pkg/logger"
)

// Option applies a configuration option to the Factory.
type Option func(*Factory)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(f *Factory) {
		if strings.TrimSpace(u) != "" {
			f.baseURL = u
		}
	}
}

// WithModel overrides the model name.
func WithModel(m string) Option {
	return func(f *Factory) {
		if strings.TrimSpace(m) != "" {
			f.model = m
		}
	}
}

// WithTimeout bounds a single provider call.
func WithTimeout(d time.Duration) Option {
	return func(f *Factory) {
		if d > 0 {
			f.hc = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Factory) {
		if hc != nil {
			f.hc = hc
		}
	}
}

// WithDefaultKey is used when a request carries no key of its own.
func WithDefaultKey(key string) Option {
	return func(f *Factory) {
		f.defaultKey = strings.TrimSpace(key)
	}
}

// WithLogger sets the logger handed to clients.
func WithLogger(l logger.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

// Factory builds per-request clients for one provider. It implements quiz.Source.
type Factory struct {
	provider   string
	baseURL    string
	model      string
	defaultKey string
	hc         *http.Client
	log        logger.Logger
}

var _ quiz.Source = (*Factory)(nil)

// NewFactory creates a factory for provider ("openai" or "gemini").
func NewFactory(provider string, opts ...Option) (*Factory, error) {
	f := &Factory{
		provider: strings.ToLower(strings.TrimSpace(provider)),
		hc:       &http.Client{Timeout: defaultTimeout},
	}
	switch f.provider {
	case OpenAIName:
		f.baseURL, f.model = DefaultOpenAIBaseURL, DefaultOpenAIModel
	case GeminiName:
		f.baseURL, f.model = DefaultGeminiBaseURL, DefaultGeminiModel
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Get().Named("llm")
	}
	return f, nil
}

// Provider returns the provider name.
func (f *Factory) Provider() string { return f.provider }

// ForKey returns a client bound to apiKey, falling back to the default key.
func (f *Factory) ForKey(apiKey string) (quiz.Generator, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = f.defaultKey
	}
	if key == "" {
		return nil, quiz.ErrMissingAPIKey
	}

	switch f.provider {
	case GeminiName:
		return &Gemini{hc: f.hc, baseURL: f.baseURL, model: f.model, apiKey: key, log: f.log}, nil
	default:
		return &OpenAI{hc: f.hc, baseURL: f.baseURL, model: f.model, apiKey: key, log: f.log}, nil
	}
}
