// Package cache memoizes media resolutions per item id.
//
// At most one resolution per id is in flight at any time; concurrent
// callers join it. Outcomes are kept as terminal states and are not
// re-fetched until the entry is refreshed, retried or evicted. Handles of
// evicted entries are released.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/resolver"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// ErrEvicted is returned to callers of a flight whose entry was evicted
// before it completed. The flight's resource has already been released.
var ErrEvicted = errors.New("cache entry evicted")

// Entry is the cached state of one item.
type Entry struct {
	ItemID   string
	State    resolver.State
	Resource *models.ResolvedResource
	Err      error
}

// ResolveFunc performs one resolution.
type ResolveFunc func(ctx context.Context) (*models.ResolvedResource, error)

// ReleaseFunc frees a resource handle. It must tolerate nil.
type ReleaseFunc func(res *models.ResolvedResource)

type slot struct {
	entry Entry
	owned bool
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*slot
	group   singleflight.Group
	release ReleaseFunc
	log     logging.Logger
}

func New(release ReleaseFunc, log logging.Logger) *Cache {
	if release == nil {
		release = func(*models.ResolvedResource) {}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Cache{
		entries: make(map[string]*slot),
		release: release,
		log:     log,
	}
}

// GetOrResolve returns the terminal entry for id, resolving it with fn on a
// miss. Resolution failures are reported through Entry.State and Entry.Err.
// The returned error is non-nil only when no entry could be produced: ctx
// ended while waiting, the item needs a master key, or the entry was evicted
// mid-flight.
//
// The flight runs without ctx's cancellation, so it completes and is cached
// even if every waiting caller gives up.
func (c *Cache) GetOrResolve(ctx context.Context, id string, fn ResolveFunc) (Entry, error) {
	c.mu.Lock()
	s, ok := c.entries[id]
	switch {
	case ok && s.entry.State.Terminal():
		e := s.entry
		c.mu.Unlock()
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return e, nil
	case ok:
		metrics.CacheLookupsTotal.WithLabelValues("shared").Inc()
	default:
		c.entries[id] = &slot{entry: Entry{ItemID: id, State: resolver.StatePending}}
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
	c.mu.Unlock()

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		return c.run(flightCtx, id, fn)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Entry{ItemID: id, State: resolver.StatePending}, res.Err
		}
		return res.Val.(Entry), nil
	case <-ctx.Done():
		return Entry{ItemID: id, State: resolver.StatePending}, ctx.Err()
	}
}

func (c *Cache) run(ctx context.Context, id string, fn ResolveFunc) (Entry, error) {
	c.mu.Lock()
	s, ok := c.entries[id]
	switch {
	case ok && s.entry.State.Terminal():
		e := s.entry
		c.mu.Unlock()
		return e, nil
	case !ok || s.owned:
		s = &slot{entry: Entry{ItemID: id, State: resolver.StatePending}}
		c.entries[id] = s
	}
	s.owned = true
	c.mu.Unlock()

	res, err := fn(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[id] != s {
		c.release(res)
		c.log.Debug(ctx, "discarded resolution of evicted entry", "id", id)
		return Entry{}, ErrEvicted
	}

	if errors.Is(err, common.ErrKeyRequired) {
		delete(c.entries, id)
		return Entry{}, err
	}

	s.entry.State = resolver.StateFor(err)
	s.entry.Resource = res
	s.entry.Err = err
	return s.entry, nil
}

// Peek returns the current entry for id without resolving.
func (c *Cache) Peek(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return s.entry, true
}

// Len is the number of entries, pending ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Refresh drops the entry for id, releasing its handle, and resolves again.
// A flight still running for the old entry releases its result on completion.
func (c *Cache) Refresh(ctx context.Context, id string, fn ResolveFunc) (Entry, error) {
	c.mu.Lock()
	c.evictLocked(id)
	c.mu.Unlock()

	return c.GetOrResolve(ctx, id, fn)
}

// Retry refreshes id only when its last outcome was a retryable error.
// Not-found and unavailable entries are returned unchanged.
func (c *Cache) Retry(ctx context.Context, id string, fn ResolveFunc) (Entry, error) {
	c.mu.Lock()
	s, ok := c.entries[id]
	retry := ok && s.entry.State == resolver.StateError
	c.mu.Unlock()

	if retry {
		return c.Refresh(ctx, id, fn)
	}
	return c.GetOrResolve(ctx, id, fn)
}

// Retain evicts every entry whose id is not in ids and returns how many were
// dropped.
func (c *Cache) Retain(ids []string) int {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id := range c.entries {
		if _, ok := keep[id]; !ok {
			c.evictLocked(id)
			n++
		}
	}
	return n
}

// Remove evicts the entry for id.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(id)
}

// Clear evicts everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.entries {
		c.evictLocked(id)
	}
}

func (c *Cache) evictLocked(id string) {
	s, ok := c.entries[id]
	if !ok {
		return
	}
	delete(c.entries, id)
	c.group.Forget(id)
	c.release(s.entry.Resource)
	metrics.CacheEvictionsTotal.Inc()
}
