package leaderboard

import (
	"context"
	"sync"
)

// Memory is a Persister kept in process memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty in-memory persister.
func NewMemory() *Memory { return &Memory{} }

// Load implements Persister.
func (m *Memory) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

// Save implements Persister.
func (m *Memory) Save(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:0:0], entries...)
	return nil
}
