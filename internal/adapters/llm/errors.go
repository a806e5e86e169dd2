package llm

import "errors"

// Sentinel errors for provider calls.
var (
	ErrUpstream        = errors.New("llm provider error")
	ErrEmptyResponse   = errors.New("llm returned no content")
	ErrUnknownProvider = errors.New("unknown llm provider")
)
