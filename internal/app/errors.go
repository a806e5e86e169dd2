package service

import "errors"

// Sentinel errors for service operations.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrNoPendingQuiz = errors.New("no quiz awaiting an answer")
)
