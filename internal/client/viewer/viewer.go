// Package viewer implements the lightbox: one viewing session over an
// ordered, filtered list of media items.
//
// Every show issues a request token and only the latest token may commit
// its result, so a slow resolution for an item the user has navigated away
// from can never replace what is on screen. Discarded results are released
// immediately.
package viewer

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/resolver"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/metrics"
)

var (
	// ErrSuperseded is returned for a show that a newer navigation overtook.
	ErrSuperseded = errors.New("superseded by a newer navigation")
	// ErrClosed is returned when navigating a closed viewer.
	ErrClosed = errors.New("viewer is closed")
	// ErrIndexOutOfRange is returned by Show for an index outside the list.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Resolver produces and releases display resources.
type Resolver interface {
	Resolve(ctx context.Context, item models.MediaItem, sess resolver.SessionContext) (*models.ResolvedResource, error)
	Release(res *models.ResolvedResource)
}

// Viewer is safe for concurrent use. The zero value is not usable; call New.
type Viewer struct {
	resolver Resolver
	sess     resolver.SessionContext
	log      logging.Logger

	mu      sync.Mutex
	open    bool
	items   []models.MediaItem
	index   int
	token   uint64
	current *models.ResolvedResource
}

func New(r Resolver, sess resolver.SessionContext, log logging.Logger) *Viewer {
	if log == nil {
		log = logging.Nop()
	}
	return &Viewer{resolver: r, sess: sess, log: log}
}

// Open starts a session over items at index, closing any previous one.
func (v *Viewer) Open(ctx context.Context, items []models.MediaItem, index int) (*models.ResolvedResource, error) {
	if len(items) == 0 {
		v.Close()
		return nil, resolver.ErrEmptyList
	}
	if index < 0 || index >= len(items) {
		return nil, ErrIndexOutOfRange
	}

	v.mu.Lock()
	v.token++
	v.releaseLocked()
	v.items = append([]models.MediaItem(nil), items...)
	v.index = index
	v.open = true
	v.mu.Unlock()

	return v.Show(ctx, index)
}

// Show displays the item at index.
func (v *Viewer) Show(ctx context.Context, index int) (*models.ResolvedResource, error) {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return nil, ErrClosed
	}
	if index < 0 || index >= len(v.items) {
		v.mu.Unlock()
		return nil, ErrIndexOutOfRange
	}
	v.token++
	token := v.token
	v.index = index
	item := v.items[index]
	v.mu.Unlock()

	res, err := v.resolver.Resolve(ctx, item, v.sess)

	v.mu.Lock()
	defer v.mu.Unlock()

	if token != v.token {
		v.resolver.Release(res)
		metrics.StaleResultsTotal.Inc()
		v.log.Debug(ctx, "discarded stale resolution", "id", item.ID)
		return nil, ErrSuperseded
	}

	v.releaseLocked()
	if err != nil {
		return nil, err
	}
	v.current = res
	return res, nil
}

// Next shows the following item, wrapping to the first.
func (v *Viewer) Next(ctx context.Context) (*models.ResolvedResource, error) {
	return v.step(ctx, resolver.Next)
}

// Prev shows the preceding item, wrapping to the last.
func (v *Viewer) Prev(ctx context.Context) (*models.ResolvedResource, error) {
	return v.step(ctx, resolver.Prev)
}

func (v *Viewer) step(ctx context.Context, dir resolver.Direction) (*models.ResolvedResource, error) {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return nil, ErrClosed
	}
	idx, err := resolver.Navigate(len(v.items), v.index, dir)
	v.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return v.Show(ctx, idx)
}

// SetItems replaces the list, e.g. after a filter change or a delete. The
// displayed item keeps its place when it is still listed; otherwise the item
// now at the same position is shown. An empty list closes the session.
func (v *Viewer) SetItems(ctx context.Context, items []models.MediaItem) error {
	if len(items) == 0 {
		v.Close()
		return resolver.ErrEmptyList
	}

	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return ErrClosed
	}
	currentID := v.items[v.index].ID
	v.items = append([]models.MediaItem(nil), items...)
	for i, it := range v.items {
		if it.ID == currentID {
			v.index = i
			v.mu.Unlock()
			return nil
		}
	}
	idx := min(v.index, len(v.items)-1)
	v.mu.Unlock()

	_, err := v.Show(ctx, idx)
	return err
}

// Current returns the displayed item and its resource. The resource is nil
// while loading or after a failed show.
func (v *Viewer) Current() (models.MediaItem, *models.ResolvedResource, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.open {
		return models.MediaItem{}, nil, false
	}
	return v.items[v.index], v.current, true
}

// Index is the position of the displayed item.
func (v *Viewer) Index() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index
}

// Len is the number of items in the session.
func (v *Viewer) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items)
}

func (v *Viewer) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// Close ends the session and releases the displayed resource. Shows still
// in flight are discarded when they complete.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.token++
	v.releaseLocked()
	v.open = false
	v.items = nil
	v.index = 0
}

func (v *Viewer) releaseLocked() {
	if v.current != nil {
		v.resolver.Release(v.current)
		v.current = nil
	}
}
