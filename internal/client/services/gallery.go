package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophgallery/internal/client/cache"
	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/comments"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/resolver"
	"github.com/dmitrijs2005/gophgallery/internal/client/session"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/filex"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/mediatypes"
	"golang.org/x/sync/errgroup"
)

// Filter selects which media items are visible.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterImages    Filter = "images"
	FilterVideos    Filter = "videos"
	FilterFavorites Filter = "favorites"
)

// ParseFilter validates a filter name.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterAll, FilterImages, FilterVideos, FilterFavorites:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", common.ErrValidation, s)
	}
}

// SortField orders the visible items.
type SortField string

const (
	SortByDate SortField = "date"
	SortByName SortField = "name"
	SortBySize SortField = "size"
)

// ParseSort validates a sort field and order ("asc" or "desc").
func ParseSort(field, order string) (SortField, bool, error) {
	var f SortField
	switch sf := SortField(strings.ToLower(strings.TrimSpace(field))); sf {
	case SortByDate, SortByName, SortBySize:
		f = sf
	default:
		return "", false, fmt.Errorf("%w: unknown sort field %q", common.ErrValidation, field)
	}

	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc":
		return f, true, nil
	case "asc":
		return f, false, nil
	default:
		return "", false, fmt.Errorf("%w: unknown sort order %q", common.ErrValidation, order)
	}
}

// Thumbnail is the resolution outcome of one visible item.
type Thumbnail struct {
	Item  models.MediaItem
	Entry cache.Entry
	Err   error
}

// GalleryService is the gallery page: the paged media listing with its
// filter and sort, thumbnail resolution through the cache, and the
// server-confirmed mutations.
type GalleryService interface {
	Load(ctx context.Context) (int, error)
	LoadMore(ctx context.Context) (int, error)
	HasMore() bool
	Total() int

	SetFilter(f Filter)
	SetSort(field SortField, desc bool)
	Filter() Filter
	Visible() []models.MediaItem
	Item(id string) (models.MediaItem, bool)

	Thumbnails(ctx context.Context, items []models.MediaItem) []Thumbnail
	RetryThumbnail(ctx context.Context, item models.MediaItem) (cache.Entry, error)

	Rename(ctx context.Context, id, filename string) error
	Move(ctx context.Context, id string, folderID *string) error
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)

	Comments(id string) ([]comments.Entry, error)
	AddComment(ctx context.Context, id, text string) error
	EditComment(ctx context.Context, id, commentID, text string) error
	DeleteComment(ctx context.Context, id, commentID string) error

	Versions(ctx context.Context, id string) ([]models.FileVersion, error)
	Upload(ctx context.Context, path string, encrypt bool) (*models.MediaItem, error)

	Close()
}

// GalleryOptions tunes paging and thumbnail fan-out.
type GalleryOptions struct {
	PageSize         int
	ThumbnailWorkers int
}

type galleryService struct {
	client   client.Client
	cache    *cache.Cache
	resolver *resolver.Resolver
	store    *session.Store
	log      logging.Logger
	opts     GalleryOptions

	mu      sync.RWMutex
	items   []models.MediaItem
	page    int
	hasMore bool
	total   int
	filter  Filter
	sortBy  SortField
	desc    bool
}

// NewGalleryService wires the gallery page. The cache must release handles
// through r.
func NewGalleryService(c client.Client, r *resolver.Resolver, rc *cache.Cache, store *session.Store, opts GalleryOptions, log logging.Logger) GalleryService {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.ThumbnailWorkers <= 0 {
		opts.ThumbnailWorkers = 4
	}
	if log == nil {
		log = logging.Nop()
	}
	return &galleryService{
		client:   c,
		cache:    rc,
		resolver: r,
		store:    store,
		log:      log,
		opts:     opts,
		filter:   FilterAll,
		sortBy:   SortByDate,
		desc:     true,
	}
}

// Load fetches the first page and replaces the listing. Cache entries of
// items no longer listed are evicted.
func (g *galleryService) Load(ctx context.Context) (int, error) {
	listing, err := g.client.ListFiles(ctx, 1, g.opts.PageSize)
	if err != nil {
		return 0, fmt.Errorf("list files: %w", err)
	}

	media := mediaOnly(listing.Files)

	g.mu.Lock()
	g.items = media
	g.page = 1
	g.hasMore = listing.HasMore
	g.total = listing.Total
	ids := itemIDs(g.items)
	g.mu.Unlock()

	if n := g.cache.Retain(ids); n > 0 {
		g.log.Debug(ctx, "evicted stale cache entries", "count", n)
	}
	return len(media), nil
}

// LoadMore appends the next page. It returns 0 when nothing remains.
func (g *galleryService) LoadMore(ctx context.Context) (int, error) {
	g.mu.RLock()
	more, next := g.hasMore, g.page+1
	g.mu.RUnlock()

	if !more {
		return 0, nil
	}

	listing, err := g.client.ListFiles(ctx, next, g.opts.PageSize)
	if err != nil {
		return 0, fmt.Errorf("list files page %d: %w", next, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]struct{}, len(g.items))
	for _, it := range g.items {
		seen[it.ID] = struct{}{}
	}
	added := 0
	for _, it := range mediaOnly(listing.Files) {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		g.items = append(g.items, it)
		added++
	}
	g.page = next
	g.hasMore = listing.HasMore
	g.total = listing.Total
	return added, nil
}

func (g *galleryService) HasMore() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasMore
}

func (g *galleryService) Total() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.total
}

func (g *galleryService) SetFilter(f Filter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter = f
}

func (g *galleryService) Filter() Filter {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.filter
}

func (g *galleryService) SetSort(field SortField, desc bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sortBy = field
	g.desc = desc
}

// Visible returns the filtered and sorted items. This is the list the
// lightbox navigates.
func (g *galleryService) Visible() []models.MediaItem {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]models.MediaItem, 0, len(g.items))
	for _, it := range g.items {
		if matches(g.filter, it) {
			out = append(out, it)
		}
	}

	cmp := compareBy(g.sortBy)
	slices.SortStableFunc(out, func(a, b models.MediaItem) int {
		if g.desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return out
}

func (g *galleryService) Item(id string) (models.MediaItem, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i := g.indexLocked(id)
	if i < 0 {
		return models.MediaItem{}, false
	}
	return g.items[i], true
}

// Thumbnails resolves items through the cache with bounded concurrency. A
// failure for one item does not stop the others.
func (g *galleryService) Thumbnails(ctx context.Context, items []models.MediaItem) []Thumbnail {
	out := make([]Thumbnail, len(items))

	var eg errgroup.Group
	eg.SetLimit(g.opts.ThumbnailWorkers)

	for i, item := range items {
		i, item := i, item
		eg.Go(func() error {
			entry, err := g.cache.GetOrResolve(ctx, item.ID, g.resolveFunc(item))
			out[i] = Thumbnail{Item: item, Entry: entry, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

// RetryThumbnail re-resolves item when its last outcome was a retryable
// error.
func (g *galleryService) RetryThumbnail(ctx context.Context, item models.MediaItem) (cache.Entry, error) {
	return g.cache.Retry(ctx, item.ID, g.resolveFunc(item))
}

func (g *galleryService) resolveFunc(item models.MediaItem) cache.ResolveFunc {
	return func(ctx context.Context) (*models.ResolvedResource, error) {
		return g.resolver.Resolve(ctx, item, g.store)
	}
}

func (g *galleryService) Rename(ctx context.Context, id, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return fmt.Errorf("%w: file name must not be empty", common.ErrValidation)
	}
	old, err := g.mustItem(id)
	if err != nil {
		return err
	}

	updated, err := g.client.RenameFile(ctx, id, filename)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	g.applyServerItem(id, updated, func(it *models.MediaItem) { it.Filename = filename })

	// the cached resource carries a MIME type derived from the old extension
	if !strings.EqualFold(filepath.Ext(old.Filename), filepath.Ext(filename)) {
		g.cache.Remove(id)
	}
	return nil
}

func (g *galleryService) Move(ctx context.Context, id string, folderID *string) error {
	if _, err := g.mustItem(id); err != nil {
		return err
	}

	updated, err := g.client.MoveFile(ctx, id, folderID)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	g.applyServerItem(id, updated, func(it *models.MediaItem) { it.FolderID = folderID })
	return nil
}

// Delete removes the item on the server, then locally, and evicts its cache
// entry.
func (g *galleryService) Delete(ctx context.Context, id string) error {
	if _, err := g.mustItem(id); err != nil {
		return err
	}
	if err := g.client.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	g.mu.Lock()
	if i := g.indexLocked(id); i >= 0 {
		g.items = slices.Delete(g.items, i, i+1)
		g.total--
	}
	g.mu.Unlock()

	g.cache.Remove(id)
	return nil
}

// ToggleFavorite flips the favorite flag locally at once and rolls it back
// when the server rejects the change. It returns the resulting flag.
func (g *galleryService) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	g.mu.Lock()
	i := g.indexLocked(id)
	if i < 0 {
		g.mu.Unlock()
		return false, unknownItem(id)
	}
	prev := g.items[i].IsFavorite
	g.items[i].IsFavorite = !prev
	g.mu.Unlock()

	updated, err := g.client.SetFavorite(ctx, id, !prev)
	if err != nil {
		g.mu.Lock()
		if i := g.indexLocked(id); i >= 0 {
			g.items[i].IsFavorite = prev
		}
		g.mu.Unlock()
		g.log.Warn(ctx, "favorite toggle rolled back", "id", id, "error", err)
		return prev, fmt.Errorf("favorite: %w", err)
	}

	g.applyServerItem(id, updated, func(it *models.MediaItem) { it.IsFavorite = !prev })
	return !prev, nil
}

func (g *galleryService) Comments(id string) ([]comments.Entry, error) {
	item, err := g.mustItem(id)
	if err != nil {
		return nil, err
	}
	return comments.Parse(item.Comment), nil
}

func (g *galleryService) AddComment(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: comment must not be empty", common.ErrValidation)
	}
	return g.updateComments(ctx, id, func(list []comments.Entry) ([]comments.Entry, error) {
		return comments.Append(list, text), nil
	})
}

func (g *galleryService) EditComment(ctx context.Context, id, commentID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: comment must not be empty", common.ErrValidation)
	}
	return g.updateComments(ctx, id, func(list []comments.Entry) ([]comments.Entry, error) {
		if _, ok := comments.Find(list, commentID); !ok {
			return nil, unknownComment(commentID)
		}
		return comments.Update(list, commentID, text), nil
	})
}

func (g *galleryService) DeleteComment(ctx context.Context, id, commentID string) error {
	return g.updateComments(ctx, id, func(list []comments.Entry) ([]comments.Entry, error) {
		if _, ok := comments.Find(list, commentID); !ok {
			return nil, unknownComment(commentID)
		}
		return comments.Remove(list, commentID), nil
	})
}

// updateComments edits the latest local comment list of id and persists
// it. Local state changes only after the server confirms.
func (g *galleryService) updateComments(ctx context.Context, id string, edit func([]comments.Entry) ([]comments.Entry, error)) error {
	item, err := g.mustItem(id)
	if err != nil {
		return err
	}

	list, err := edit(comments.Parse(item.Comment))
	if err != nil {
		return err
	}
	encoded, err := comments.Encode(list)
	if err != nil {
		return fmt.Errorf("encode comments: %w", err)
	}

	updated, err := g.client.UpdateComment(ctx, id, encoded)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	g.applyServerItem(id, updated, func(it *models.MediaItem) { it.Comment = encoded })
	return nil
}

func (g *galleryService) Versions(ctx context.Context, id string) ([]models.FileVersion, error) {
	if _, err := g.mustItem(id); err != nil {
		return nil, err
	}
	versions, err := g.client.ListVersions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}
	return versions, nil
}

// Upload sends the file at path, encrypted with the master key when encrypt
// is set, and reloads the listing once the upload has completed.
func (g *galleryService) Upload(ctx context.Context, path string, encrypt bool) (*models.MediaItem, error) {
	path, err := filex.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	if !mediatypes.IsMediaFile(name) {
		return nil, fmt.Errorf("%w: %s is not an image or video", common.ErrValidation, name)
	}

	var key []byte
	if encrypt {
		k, ok := g.store.MasterKey()
		if !ok {
			return nil, common.ErrKeyRequired
		}
		key = k
		defer common.WipeByteArray(key)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if encrypt {
		data, err = cryptox.EncryptBlob(key, data)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", name, err)
		}
	}

	item, err := g.client.UploadFile(ctx, name, data, encrypt)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	if _, err := g.Load(ctx); err != nil {
		return item, err
	}
	return item, nil
}

// Close releases every cached handle.
func (g *galleryService) Close() {
	g.cache.Clear()
}

func (g *galleryService) mustItem(id string) (models.MediaItem, error) {
	item, ok := g.Item(id)
	if !ok {
		return models.MediaItem{}, unknownItem(id)
	}
	return item, nil
}

// applyServerItem replaces the local copy of id with the server's response,
// or applies fallback when the server returned no body.
func (g *galleryService) applyServerItem(id string, updated *models.MediaItem, fallback func(*models.MediaItem)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.indexLocked(id)
	if i < 0 {
		return
	}
	if updated != nil && updated.ID == id {
		g.items[i] = *updated
		return
	}
	fallback(&g.items[i])
}

func (g *galleryService) indexLocked(id string) int {
	return slices.IndexFunc(g.items, func(it models.MediaItem) bool { return it.ID == id })
}

func unknownItem(id string) error {
	return fmt.Errorf("%w: unknown item %q", common.ErrValidation, id)
}

func unknownComment(id string) error {
	return fmt.Errorf("%w: unknown comment %q", common.ErrValidation, id)
}

func mediaOnly(files []models.MediaItem) []models.MediaItem {
	out := make([]models.MediaItem, 0, len(files))
	for _, f := range files {
		if mediatypes.IsMediaFile(f.Filename) {
			out = append(out, f)
		}
	}
	return out
}

func itemIDs(items []models.MediaItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func matches(f Filter, it models.MediaItem) bool {
	switch f {
	case FilterImages:
		return it.Type() == mediatypes.FileTypeImage
	case FilterVideos:
		return it.Type() == mediatypes.FileTypeVideo
	case FilterFavorites:
		return it.IsFavorite
	default:
		return true
	}
}

func compareBy(field SortField) func(a, b models.MediaItem) int {
	switch field {
	case SortByName:
		return func(a, b models.MediaItem) int {
			return strings.Compare(strings.ToLower(a.Filename), strings.ToLower(b.Filename))
		}
	case SortBySize:
		return func(a, b models.MediaItem) int {
			switch {
			case a.SizeBytes < b.SizeBytes:
				return -1
			case a.SizeBytes > b.SizeBytes:
				return 1
			}
			return 0
		}
	default:
		return func(a, b models.MediaItem) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
}
