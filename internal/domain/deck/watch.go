package deck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/flashquiz/pkg/logger"
	"github.com/okian/flashquiz/pkg/metrics"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a Catalog when deck files in its directory change.
// Sessions already running keep the pool they started with.
type Watcher struct {
	cat      *Catalog
	dir      string
	fw       *fsnotify.Watcher
	debounce time.Duration
	onReload func(context.Context, *Catalog)
	log      logger.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce coalesces bursts of file events.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// OnReload is called after every successful reload.
func OnReload(fn func(context.Context, *Catalog)) WatchOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(l logger.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher starts watching dir. Call Run to process events.
func NewWatcher(cat *Catalog, dir string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create deck watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch deck dir %s: %w", dir, err)
	}

	w := &Watcher{
		cat:      cat,
		dir:      dir,
		fw:       fw,
		debounce: defaultDebounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Get().Named("deck-watch")
	}
	return w, nil
}

// Run processes file events until ctx ends or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !Supported(ev.Name) || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "deck watcher error", logger.Error(err))
			metrics.RecordErrorByComponent("deck_watcher", "watch")
		case <-fire:
			fire = nil
			if err := w.cat.LoadDir(ctx, w.dir); err != nil {
				w.log.Warn(ctx, "deck reload failed, keeping previous decks", logger.Error(err))
				metrics.RecordErrorByComponent("deck_watcher", "reload")
				continue
			}
			if w.onReload != nil {
				w.onReload(ctx, w.cat)
			}
		}
	}
}

// Close stops Run and releases the OS watch.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.fw.Close()
	})
	return err
}

// Done is closed when Run returns.
func (w *Watcher) Done() <-chan struct{} { return w.done }
