package deck

import "errors"

// Sentinel errors for deck loading and lookup.
var (
	ErrDeckNotFound    = errors.New("deck not found")
	ErrDeckMalformed   = errors.New("deck malformed")
	ErrUnsupportedType = errors.New("unsupported deck file type")
	ErrInvalidDeckName = errors.New("invalid deck name")
)
