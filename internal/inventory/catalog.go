package inventory

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/showroom-assistant/internal/fetcher"
	"github.com/sells-group/showroom-assistant/internal/model"
)

// Source lists the vehicles currently for sale.
type Source interface {
	List(ctx context.Context) ([]model.Vehicle, error)
}

// SourceFunc adapts a function to Source, e.g. store.Store.ListVehicles.
type SourceFunc func(ctx context.Context) ([]model.Vehicle, error)

// List calls f.
func (f SourceFunc) List(ctx context.Context) ([]model.Vehicle, error) {
	return f(ctx)
}

// Catalog is an in-memory Source built from one or more feeds. The
// snapshot is replaced atomically on every reload.
type Catalog struct {
	fetch    fetcher.Fetcher
	feeds    []string
	debounce time.Duration

	mu       sync.RWMutex
	vehicles []model.Vehicle
	loaded   bool
	loadedAt time.Time
}

// NewCatalog creates a catalog over feeds. Nothing is read until Load or
// the first List.
func NewCatalog(f fetcher.Fetcher, feeds ...string) *Catalog {
	return &Catalog{fetch: f, feeds: feeds, debounce: 250 * time.Millisecond}
}

// NewStaticCatalog wraps a fixed vehicle list.
func NewStaticCatalog(vehicles []model.Vehicle) *Catalog {
	c := &Catalog{}
	c.Set(vehicles)
	return c
}

// Feeds returns the configured feed URIs.
func (c *Catalog) Feeds() []string {
	return append([]string(nil), c.feeds...)
}

// Load reads every feed concurrently and swaps in the merged result. Feeds
// are merged in configuration order and the first record per stock number
// wins. A failing feed fails the whole load and keeps the old snapshot.
func (c *Catalog) Load(ctx context.Context) error {
	results := make([][]model.Vehicle, len(c.feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, uri := range c.feeds {
		g.Go(func() error {
			vehicles, err := LoadFeed(gctx, c.fetch, uri)
			if err != nil {
				return err
			}
			results[i] = vehicles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "inventory: load catalog")
	}

	merged := Merge(results...)
	c.Set(merged)
	zap.L().Info("inventory: catalog loaded",
		zap.Int("feeds", len(c.feeds)),
		zap.Int("vehicles", len(merged)),
	)
	return nil
}

// Merge concatenates feeds, dropping later records whose stock number was
// already seen.
func Merge(feeds ...[]model.Vehicle) []model.Vehicle {
	seen := make(map[string]bool)
	var out []model.Vehicle
	for _, feed := range feeds {
		for _, v := range feed {
			if v.StockNumber != "" {
				if seen[v.StockNumber] {
					continue
				}
				seen[v.StockNumber] = true
			}
			out = append(out, v)
		}
	}
	return out
}

// Set replaces the snapshot.
func (c *Catalog) Set(vehicles []model.Vehicle) {
	snapshot := append([]model.Vehicle(nil), vehicles...)
	c.mu.Lock()
	c.vehicles = snapshot
	c.loaded = true
	c.loadedAt = time.Now()
	c.mu.Unlock()
}

// List returns a copy of the snapshot, loading the feeds on first use.
func (c *Catalog) List(ctx context.Context) ([]model.Vehicle, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if !loaded && len(c.feeds) > 0 {
		if err := c.Load(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Vehicle(nil), c.vehicles...), nil
}

// Find returns the vehicle with the given stock number.
func (c *Catalog) Find(ctx context.Context, stockNumber string) (model.Vehicle, bool, error) {
	vehicles, err := c.List(ctx)
	if err != nil {
		return model.Vehicle{}, false, err
	}
	for _, v := range vehicles {
		if v.StockNumber == stockNumber {
			return v, true, nil
		}
	}
	return model.Vehicle{}, false, nil
}

// LoadedAt reports when the snapshot was last replaced.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Watch reloads the catalog whenever a local feed file changes. Remote
// feeds are ignored. It returns once the watcher is registered; the watch
// loop runs until ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, uri := range c.feeds {
		if s := fetcher.Scheme(uri); s != "" && s != "file" {
			continue
		}
		p, err := filepath.Abs(fetcher.LocalPath(uri))
		if err != nil {
			return eris.Wrapf(err, "inventory: resolve %s", uri)
		}
		files[p] = true
		dirs[filepath.Dir(p)] = true
	}
	if len(files) == 0 {
		zap.L().Debug("inventory: no local feeds to watch")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "inventory: create watcher")
	}
	// Directories are watched so editors that replace the file are seen.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return eris.Wrapf(err, "inventory: watch %s", dir)
		}
	}

	go func() {
		defer watcher.Close() //nolint:errcheck

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if p, err := filepath.Abs(evt.Name); err != nil || !files[p] {
					continue
				}
				pending = time.After(c.debounce)
			case <-pending:
				pending = nil
				if err := c.Load(ctx); err != nil {
					zap.L().Warn("inventory: reload failed", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Warn("inventory: watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
