package sessions

import "errors"

// Sentinel errors for session lookup and access.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session busy, try again")
	ErrTooManySessions = errors.New("too many sessions")
	ErrRegistryClosed  = errors.New("session registry closed")
)
