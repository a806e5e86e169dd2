package leaderboard

import "errors"

// Sentinel errors for leaderboard access.
var (
	// ErrLockTimeout means the exclusive submit lock could not be acquired
	// in time. The caller may retry.
	ErrLockTimeout = errors.New("leaderboard lock timeout")

	// ErrPersistence wraps a failed write. The stored table is unchanged.
	ErrPersistence = errors.New("leaderboard persistence failure")

	// ErrMalformed is returned by persisters when stored data cannot be decoded.
	ErrMalformed = errors.New("leaderboard data malformed")
)
