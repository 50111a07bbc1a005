package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/client/cache"
	"github.com/dmitrijs2005/gophgallery/internal/client/comments"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/resolver"
	"github.com/dmitrijs2005/gophgallery/internal/client/services"
	"github.com/dmitrijs2005/gophgallery/internal/client/viewer"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dustin/go-humanize"
)

const dateLayout = "2006-01-02 15:04"

// List reloads the first page of the listing and prints the visible items.
func (a *App) List(ctx context.Context, _ []string) error {
	if _, err := a.gallery.Load(ctx); err != nil {
		return err
	}
	a.syncViewer(ctx)
	a.printItems()
	return nil
}

// More appends the next page of the listing.
func (a *App) More(ctx context.Context, _ []string) error {
	if !a.gallery.HasMore() {
		fmt.Fprintln(a.out, "No more items")
		return nil
	}
	n, err := a.gallery.LoadMore(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Loaded %d more\n", n)
	a.syncViewer(ctx)
	a.printItems()
	return nil
}

func (a *App) Filter(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintf(a.out, "Filter: %s\n", a.gallery.Filter())
		return nil
	}
	f, err := services.ParseFilter(args[0])
	if err != nil {
		return err
	}
	a.gallery.SetFilter(f)
	a.syncViewer(ctx)
	a.printItems()
	return nil
}

func (a *App) Sort(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usageError("sort <date|name|size> [asc|desc]")
	}
	order := ""
	if len(args) == 2 {
		order = args[1]
	}
	field, desc, err := services.ParseSort(args[0], order)
	if err != nil {
		return err
	}
	a.gallery.SetSort(field, desc)
	a.syncViewer(ctx)
	a.printItems()
	return nil
}

// Thumbs resolves every visible item and prints its display state.
// "thumbs retry <n>" re-resolves one item whose previous attempt failed.
func (a *App) Thumbs(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if args[0] != "retry" || len(args) != 2 {
			return usageError("thumbs [retry <n>]")
		}
		item, _, err := a.target(args[1:])
		if err != nil {
			return err
		}
		entry, err := a.gallery.RetryThumbnail(ctx, item)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, thumbLine(0, item, entry))
		return nil
	}

	for i, t := range a.gallery.Thumbnails(ctx, a.gallery.Visible()) {
		entry := t.Entry
		if t.Err != nil {
			entry = cache.Entry{ItemID: t.Item.ID, State: resolver.StateFor(t.Err), Err: t.Err}
		}
		fmt.Fprintln(a.out, thumbLine(i+1, t.Item, entry))
	}
	return nil
}

func (a *App) Favorite(ctx context.Context, args []string) error {
	item, _, err := a.target(args)
	if err != nil {
		return err
	}
	fav, err := a.gallery.ToggleFavorite(ctx, item.ID)
	if err != nil {
		return err
	}
	if fav {
		fmt.Fprintf(a.out, "%s added to favorites\n", item.Filename)
	} else {
		fmt.Fprintf(a.out, "%s removed from favorites\n", item.Filename)
	}
	a.syncViewer(ctx)
	return nil
}

func (a *App) Rename(ctx context.Context, args []string) error {
	item, rest, err := a.target(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return usageError("rename [n] <name>")
	}
	if err := a.gallery.Rename(ctx, item.ID, strings.Join(rest, " ")); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Renamed")
	a.syncViewer(ctx)
	return nil
}

// Move puts an item into a folder; "-" moves it to the root.
func (a *App) Move(ctx context.Context, args []string) error {
	item, rest, err := a.target(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return usageError("move [n] <folder|->")
	}
	var folder *string
	if rest[0] != "-" {
		folder = &rest[0]
	}
	if err := a.gallery.Move(ctx, item.ID, folder); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Moved")
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	item, _, err := a.target(args)
	if err != nil {
		return err
	}
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete %s?", item.Filename), a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.gallery.Delete(ctx, item.ID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	a.syncViewer(ctx)
	return nil
}

func (a *App) Comments(_ context.Context, args []string) error {
	item, _, err := a.target(args)
	if err != nil {
		return err
	}
	list, err := a.gallery.Comments(item.ID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No comments")
		return nil
	}
	for _, c := range list {
		line := fmt.Sprintf("[%s] %s  %s", shortID(c.ID), c.CreatedAt.Local().Format(dateLayout), c.Text)
		if c.UpdatedAt != nil {
			line += " (edited)"
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

// Comment dispatches "comment add|edit|rm". Comment ids may be given by any
// unique prefix.
func (a *App) Comment(ctx context.Context, args []string) error {
	const usage = usageError("comment add [n] <text> | comment edit [n] <id> <text> | comment rm [n] <id>")
	if len(args) == 0 {
		return usage
	}

	sub := args[0]
	item, rest, err := a.target(args[1:])
	if err != nil {
		return err
	}

	switch sub {
	case "add":
		text, err := a.commentText(rest)
		if err != nil {
			return err
		}
		if err := a.gallery.AddComment(ctx, item.ID, text); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Comment added")

	case "edit":
		if len(rest) == 0 {
			return usage
		}
		id, err := a.commentID(item.ID, rest[0])
		if err != nil {
			return err
		}
		text, err := a.commentText(rest[1:])
		if err != nil {
			return err
		}
		if err := a.gallery.EditComment(ctx, item.ID, id, text); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Comment updated")

	case "rm":
		if len(rest) != 1 {
			return usage
		}
		id, err := a.commentID(item.ID, rest[0])
		if err != nil {
			return err
		}
		if err := a.gallery.DeleteComment(ctx, item.ID, id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Comment deleted")

	default:
		return usage
	}
	return nil
}

func (a *App) Versions(ctx context.Context, args []string) error {
	item, _, err := a.target(args)
	if err != nil {
		return err
	}
	versions, err := a.gallery.Versions(ctx, item.ID)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(a.out, "No versions")
		return nil
	}
	for _, v := range versions {
		fmt.Fprintf(a.out, "v%d  %s  %s\n", v.Version, v.CreatedAt.Local().Format(dateLayout), humanize.Bytes(uint64(max(v.SizeBytes, 0))))
	}
	return nil
}

// Upload sends a local file; -e encrypts it with the master key first.
func (a *App) Upload(ctx context.Context, args []string) error {
	encrypt := false
	if len(args) > 0 && args[0] == "-e" {
		encrypt = true
		args = args[1:]
	}
	if len(args) == 0 {
		return usageError("upload [-e] <path>")
	}
	path := strings.Join(args, " ")

	var item *models.MediaItem
	err := a.withUnlock(ctx, func() error {
		var err error
		item, err = a.gallery.Upload(ctx, path, encrypt)
		return err
	}, nil)
	if item != nil {
		fmt.Fprintf(a.out, "Uploaded %s\n", item.Filename)
	}
	if err != nil {
		return err
	}
	a.syncViewer(ctx)
	return nil
}

// target picks the item a command applies to: an explicit 1-based number in
// the visible list, or else the item open in the viewer. The remaining args
// are returned.
func (a *App) target(args []string) (models.MediaItem, []string, error) {
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			items := a.gallery.Visible()
			if n < 1 || n > len(items) {
				return models.MediaItem{}, nil, fmt.Errorf("%w: no item #%d", common.ErrValidation, n)
			}
			return items[n-1], args[1:], nil
		}
	}
	if item, _, ok := a.viewer.Current(); ok {
		return item, args, nil
	}
	return models.MediaItem{}, nil, errViewerClosed
}

func (a *App) commentText(words []string) (string, error) {
	if len(words) > 0 {
		return strings.Join(words, " "), nil
	}
	return GetComment(a.reader, a.out)
}

func (a *App) commentID(itemID, prefix string) (string, error) {
	list, err := a.gallery.Comments(itemID)
	if err != nil {
		return "", err
	}
	var found []comments.Entry
	for _, c := range list {
		if strings.HasPrefix(c.ID, prefix) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: unknown comment %q", common.ErrValidation, prefix)
	case 1:
		return found[0].ID, nil
	}
	return "", fmt.Errorf("%w: comment id %q is ambiguous", common.ErrValidation, prefix)
}

// syncViewer hands the current visible list to an open viewer.
func (a *App) syncViewer(ctx context.Context) {
	if !a.viewer.IsOpen() {
		return
	}
	err := a.viewer.SetItems(ctx, a.gallery.Visible())
	switch {
	case err == nil, errors.Is(err, viewer.ErrSuperseded):
	case errors.Is(err, resolver.ErrEmptyList):
		fmt.Fprintln(a.out, "Viewer closed:", describe(err))
	default:
		fmt.Fprintln(a.out, "Viewer error:", describe(err))
	}
}

func (a *App) printItems() {
	items := a.gallery.Visible()
	fmt.Fprintf(a.out, "Showing %d of %d (filter: %s)\n", len(items), a.gallery.Total(), a.gallery.Filter())
	for i, it := range items {
		fmt.Fprintln(a.out, itemLine(i+1, it))
	}
	if a.gallery.HasMore() {
		fmt.Fprintln(a.out, "More items available, type 'more'")
	}
}

func itemLine(n int, it models.MediaItem) string {
	var flags []string
	if it.IsFavorite {
		flags = append(flags, "fav")
	}
	if it.IsEncrypted {
		flags = append(flags, "enc")
	}
	if it.Comment != nil && len(comments.Parse(it.Comment)) > 0 {
		flags = append(flags, "comments")
	}
	line := fmt.Sprintf("%3d. %-32s %-5s %9s  %s", n, it.Filename, it.Type(),
		humanize.Bytes(uint64(max(it.SizeBytes, 0))), it.CreatedAt.Local().Format(dateLayout))
	if len(flags) > 0 {
		line += "  [" + strings.Join(flags, ",") + "]"
	}
	return line
}

func thumbLine(n int, it models.MediaItem, e cache.Entry) string {
	prefix := it.Filename
	if n > 0 {
		prefix = fmt.Sprintf("%3d. %s", n, it.Filename)
	}
	switch {
	case e.State == resolver.StateResolved && e.Resource != nil:
		return fmt.Sprintf("%s: %s %s", prefix, e.Resource.Kind, e.Resource.Value)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s (%s)", prefix, e.State, describe(e.Err))
	}
	return fmt.Sprintf("%s: %s", prefix, e.State)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
