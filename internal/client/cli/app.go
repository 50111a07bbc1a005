package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/cache"
	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/config"
	"github.com/dmitrijs2005/gophgallery/internal/client/migrations"
	"github.com/dmitrijs2005/gophgallery/internal/client/objecturl"
	"github.com/dmitrijs2005/gophgallery/internal/client/resolver"
	"github.com/dmitrijs2005/gophgallery/internal/client/services"
	"github.com/dmitrijs2005/gophgallery/internal/client/session"
	"github.com/dmitrijs2005/gophgallery/internal/client/viewer"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/filex"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/metrics"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// App is the interactive gallery client.
type App struct {
	config  *config.Config
	auth    services.AuthService
	gallery services.GalleryService
	viewer  *viewer.Viewer
	urls    *objecturl.Registry
	log     logging.Logger
	db      *sql.DB

	// download fetches plaintext objects from view URLs.
	download *http.Client

	mu       sync.Mutex
	mode     Mode
	userName string

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local session database, restores the stored session and
// wires the API client, services and viewer according to c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(c.LogFormat, c.LogLevel, os.Stderr)

	dbPath, err := filex.EnsureParentDir(c.SessionDBPath)
	if err != nil {
		return nil, err
	}
	db, err := dbx.OpenSQLite(ctx, dbPath, migrations.Migrations)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", dbPath, "error", err)
		return nil, err
	}

	store := session.NewStore(db)
	if err := store.Load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	apiClient := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, store)

	urls := objecturl.NewRegistry()
	r := resolver.New(apiClient, urls, log)
	rc := cache.New(r.Release, log)

	as := services.NewAuthService(apiClient, store, log)
	gs := services.NewGalleryService(apiClient, r, rc, store, services.GalleryOptions{
		PageSize:         c.PageSize,
		ThumbnailWorkers: c.ThumbnailWorkers,
	}, log)
	v := viewer.New(r, store, log)

	app := newApp(c, as, gs, v, urls, log)
	app.db = db
	app.download = &http.Client{Timeout: c.RequestTimeout}
	return app, nil
}

func newApp(c *config.Config, auth services.AuthService, gallery services.GalleryService,
	v *viewer.Viewer, urls *objecturl.Registry, log logging.Logger) *App {
	if log == nil {
		log = logging.Nop()
	}
	return &App{
		config:  c,
		auth:    auth,
		gallery: gallery,
		viewer:  v,
		urls:    urls,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "switched mode", "mode", mode)
	}
}

// Run blocks in the REPL until the user exits or ctx is done, then releases
// everything the session holds. The metrics endpoint runs alongside when
// configured.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.config.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, a.config.MetricsAddr); err != nil {
				a.log.Error(ctx, "metrics server stopped", "addr", a.config.MetricsAddr, "error", err)
			}
		}()
	}

	defer func() {
		a.viewer.Close()
		a.gallery.Close()
		a.auth.Lock()
		if err := a.auth.Close(ctx); err != nil {
			a.log.Warn(ctx, "closing api client", "error", err)
		}
		if a.db != nil {
			_ = a.db.Close()
		}
	}()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.auth.LoggedIn()
}

// StartOnlineStatusWatcher pings the backend every interval and flips the
// connectivity mode accordingly. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.auth.Ping(pingCtx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
