package repository

import "github.com/spf13/afero"

// Option applies a configuration option to Open.
type Option func(*options)

type options struct {
	fs afero.Fs
}

// WithFS sets the filesystem used by the file backend.
func WithFS(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}
