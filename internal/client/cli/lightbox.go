package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/viewer"
	"github.com/dmitrijs2005/gophgallery/internal/filex"
	"github.com/dmitrijs2005/gophgallery/internal/netx"
)

// View opens the lightbox over the visible list at item n (1-based).
func (a *App) View(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("view <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return usageError("view <n>")
	}
	items := a.gallery.Visible()
	if n < 1 || n > len(items) {
		return fmt.Errorf("no item #%d: %w", n, viewer.ErrIndexOutOfRange)
	}

	return a.show(ctx, func() (*models.ResolvedResource, error) {
		return a.viewer.Open(ctx, items, n-1)
	})
}

func (a *App) Next(ctx context.Context, _ []string) error {
	return a.show(ctx, func() (*models.ResolvedResource, error) { return a.viewer.Next(ctx) })
}

func (a *App) Prev(ctx context.Context, _ []string) error {
	return a.show(ctx, func() (*models.ResolvedResource, error) { return a.viewer.Prev(ctx) })
}

func (a *App) CloseView(_ context.Context, _ []string) error {
	a.viewer.Close()
	return nil
}

// Save writes the open item to path: the decrypted bytes of an encrypted
// item, or the object behind the view URL of a plaintext one.
func (a *App) Save(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("save <path>")
	}
	_, res, ok := a.viewer.Current()
	if !ok || res == nil {
		return errViewerClosed
	}

	var data []byte
	switch res.Kind {
	case models.ResourceKindBlob:
		obj, err := a.urls.Lookup(res.Value)
		if err != nil {
			return err
		}
		data = obj.Data
	default:
		b, err := netx.DownloadPresignedURL(ctx, a.download, res.Value)
		if err != nil {
			return fmt.Errorf("%w: %w", client.ErrNetwork, err)
		}
		data = b
	}

	path, err := filex.ExpandHome(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "Saved %d bytes to %s\n", len(data), path)
	return nil
}

// show runs one viewer navigation and prints the result. When the target is
// encrypted and the session is locked it prompts for the passphrase and
// shows the item the navigation landed on, without navigating again.
func (a *App) show(ctx context.Context, nav func() (*models.ResolvedResource, error)) error {
	var res *models.ResolvedResource
	err := a.withUnlock(ctx, func() error {
		var err error
		res, err = nav()
		return err
	}, func() error {
		var err error
		res, err = a.viewer.Show(ctx, a.viewer.Index())
		return err
	})
	if errors.Is(err, viewer.ErrSuperseded) {
		return nil
	}

	item, _, ok := a.viewer.Current()
	if !ok {
		return err
	}
	fmt.Fprintf(a.out, "[%d/%d] %s\n", a.viewer.Index()+1, a.viewer.Len(), item.Filename)
	if err != nil {
		return err
	}

	switch res.Kind {
	case models.ResourceKindBlob:
		fmt.Fprintf(a.out, "%s decrypted (%s), use 'save <path>' to export\n", res.Value, res.MimeType)
	default:
		fmt.Fprintf(a.out, "%s (%s)\n", res.Value, res.MimeType)
	}
	return nil
}
