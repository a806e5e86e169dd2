package loadtest

import "time"

// HTTP status code constants.
const (
	StatusOK          = 200
	StatusCreated     = 201
	StatusConflict    = 409
	StatusUnavailable = 503
)

// Retry configuration for busy sessions and lock timeouts.
const (
	MaxRetries = 10
	RetryDelay = 20 * time.Millisecond
)

// DefaultLeaderboardSize is the table size the server keeps.
const DefaultLeaderboardSize = 10
