package deck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/okian/flashquiz/pkg/logger"
	"github.com/okian/flashquiz/pkg/metrics"
)

// Summary describes a loaded deck.
type Summary struct {
	Name  string `json:"name"`
	Cards int    `json:"cards"`
}

// Catalog maps deck names to pools.
type Catalog struct {
	mu    sync.RWMutex
	decks map[string]*Pool
	log   logger.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithLogger sets the catalog logger.
func WithLogger(l logger.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{decks: make(map[string]*Pool)}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("deck")
	}
	return c
}

// LoadDir loads every deck file in dir. Any bad deck aborts the load so
// problems surface before sessions start. The previous contents are replaced
// only on success.
func (c *Catalog) LoadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: directory %s", ErrDeckNotFound, dir)
		}
		return fmt.Errorf("read deck dir %s: %w", dir, err)
	}

	decks := make(map[string]*Pool)
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := LoadFile(ctx, path)
		if err != nil {
			return err
		}
		if _, dup := decks[p.Name()]; dup {
			return fmt.Errorf("%w: duplicate deck name %q", ErrDeckMalformed, p.Name())
		}
		decks[p.Name()] = p
		c.log.Debug(ctx, "deck loaded", logger.String("deck", p.Name()), logger.Int("cards", p.Len()))
	}

	c.mu.Lock()
	c.decks = decks
	c.mu.Unlock()

	metrics.UpdateDecksLoaded(len(decks))
	c.log.Info(ctx, "deck catalog loaded", logger.String("dir", dir), logger.Int("decks", len(decks)))
	return nil
}

// Add registers a pool under its name, replacing any previous deck.
func (c *Catalog) Add(p *Pool) error {
	if p == nil || p.Name() == "" {
		return ErrInvalidDeckName
	}
	c.mu.Lock()
	c.decks[p.Name()] = p
	n := len(c.decks)
	c.mu.Unlock()
	metrics.UpdateDecksLoaded(n)
	return nil
}

// Get returns the named pool.
func (c *Catalog) Get(name string) (*Pool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.decks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDeckNotFound, name)
	}
	return p, nil
}

// List returns all decks sorted by name.
func (c *Catalog) List() []Summary {
	c.mu.RLock()
	out := make([]Summary, 0, len(c.decks))
	for name, p := range c.decks {
		out = append(out, Summary{Name: name, Cards: p.Len()})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of decks.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.decks)
}
