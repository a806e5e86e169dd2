package quiz

import "errors"

// Sentinel errors for quiz generation.
var (
	ErrUnknownMode    = errors.New("unknown quiz mode")
	ErrInvalidContent = errors.New("invalid generated content")
	ErrMissingAPIKey  = errors.New("missing api key")
	ErrGeneration     = errors.New("quiz generation failed")
)
