// Package jsonfile persists the leaderboard as a JSON array in one file.
//
// Saves write a temp file in the same directory and rename it over the
// target, so readers see either the old or the new table.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/okian/flashquiz/internal/domain/leaderboard"
)

const (
	tempFilePattern = ".leaderboard-*.tmp"
	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// Option configures a Persister.
type Option func(*Persister)

// WithFS sets the filesystem. Tests use afero.NewMemMapFs.
func WithFS(fs afero.Fs) Option {
	return func(p *Persister) {
		if fs != nil {
			p.fs = fs
		}
	}
}

// WithFileMode sets the permissions of the saved file.
func WithFileMode(mode os.FileMode) Option {
	return func(p *Persister) {
		if mode != 0 {
			p.mode = mode
		}
	}
}

// Persister implements leaderboard.Persister on a JSON file.
type Persister struct {
	fs   afero.Fs
	path string
	mode os.FileMode
}

var _ leaderboard.Persister = (*Persister)(nil)

// New creates a persister for path.
func New(path string, opts ...Option) *Persister {
	p := &Persister{
		fs:   afero.NewOsFs(),
		path: filepath.Clean(path),
		mode: defaultFileMode,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Path returns the file path.
func (p *Persister) Path() string { return p.path }

// Load reads the table. A missing or empty file is an empty table.
func (p *Persister) Load(ctx context.Context) ([]leaderboard.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []leaderboard.Entry{}, nil
		}
		return nil, fmt.Errorf("read leaderboard file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []leaderboard.Entry{}, nil
	}

	var entries []leaderboard.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", p.path, leaderboard.ErrMalformed, err)
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	return entries, nil
}

// Save atomically replaces the file with entries.
func (p *Persister) Save(ctx context.Context, entries []leaderboard.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := p.fs.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("create leaderboard directory: %w", err)
	}

	tempFile, err := afero.TempFile(p.fs, dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp leaderboard file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = p.fs.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp leaderboard file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp leaderboard file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp leaderboard file: %w", err)
	}

	if err := p.fs.Chmod(tempName, p.mode); err != nil {
		return fmt.Errorf("chmod temp leaderboard file: %w", err)
	}

	if err := p.fs.Rename(tempName, p.path); err != nil {
		return fmt.Errorf("replace leaderboard file: %w", err)
	}

	cleanup = false
	return nil
}
