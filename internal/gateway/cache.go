package gateway

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/naka-gawa/repostats/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedLoader memoizes another Loader per ordered tuple of paths. Concurrent
// first requests for the same tuple share a single load. Failed loads are not
// cached.
type CachedLoader struct {
	next   Loader
	logger *log.Logger
	group  singleflight.Group

	mu     sync.Mutex
	tables map[string]*domain.Table
}

// NewCachedLoader wraps next with a per-path-tuple cache.
func NewCachedLoader(next Loader, logger *log.Logger) *CachedLoader {
	return &CachedLoader{
		next:   next,
		logger: logger,
		tables: make(map[string]*domain.Table),
	}
}

// Load returns the cached table for paths, loading it on first use.
func (c *CachedLoader) Load(ctx context.Context, paths ...string) (*domain.Table, error) {
	key := cacheKey(paths)
	if t, ok := c.lookup(key); ok {
		return t, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if t, ok := c.lookup(key); ok {
			return t, nil
		}
		c.logger.Printf("Cache miss for %v, loading...", paths)
		// The load is shared by every waiting caller, so one caller
		// going away must not cancel it for the others.
		t, err := c.next.Load(context.WithoutCancel(ctx), paths...)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[key] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Table), nil
}

// Invalidate drops every cached table.
func (c *CachedLoader) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[string]*domain.Table)
}

func (c *CachedLoader) lookup(key string) (*domain.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[key]
	return t, ok
}

func cacheKey(paths []string) string {
	clean := make([]string, len(paths))
	for i, p := range paths {
		clean[i] = filepath.Clean(p)
	}
	return strings.Join(clean, "\x00")
}
