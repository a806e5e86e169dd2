// Package repository selects and opens the leaderboard persistence backend.
package repository

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/flashquiz/internal/adapters/repository/jsonfile"
	"github.com/okian/flashquiz/internal/adapters/repository/sqlite"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backend is an opened persister plus whatever must be closed with it.
type Backend struct {
	leaderboard.Persister
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the persister for backend at path. The memory backend ignores
// path.
func Open(ctx context.Context, backend, path string, opts ...Option) (*Backend, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	switch backend {
	case "", BackendFile:
		var fileOpts []jsonfile.Option
		if o.fs != nil {
			fileOpts = append(fileOpts, jsonfile.WithFS(o.fs))
		}
		return &Backend{Persister: jsonfile.New(path, fileOpts...), Closer: nopCloser{}}, nil
	case BackendSQLite:
		p, err := sqlite.New(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite leaderboard %s: %w", path, err)
		}
		return &Backend{Persister: p, Closer: p}, nil
	case BackendMemory:
		return &Backend{Persister: leaderboard.NewMemory(), Closer: nopCloser{}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
