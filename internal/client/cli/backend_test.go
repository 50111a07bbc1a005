package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/cache"
	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/config"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/objecturl"
	"github.com/dmitrijs2005/gophgallery/internal/client/resolver"
	"github.com/dmitrijs2005/gophgallery/internal/client/services"
	"github.com/dmitrijs2005/gophgallery/internal/client/session"
	"github.com/dmitrijs2005/gophgallery/internal/client/viewer"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "open sesame"

// memBackend is an in-memory client.Client that applies mutations to its
// own item list, so the CLI can be driven end to end.
type memBackend struct {
	mu sync.Mutex

	items     []models.MediaItem
	payloads  map[string][]byte
	km        models.KeyMaterial
	offline   bool
	mutateErr error
	calls     []string

	// cdnURL, when set, replaces the fake view URL host.
	cdnURL string
}

var _ client.Client = (*memBackend)(nil)

func newMemBackend(t *testing.T) *memBackend {
	t.Helper()
	salt := []byte("0123456789abcdef")
	key := cryptox.DeriveMasterKey([]byte(testPassphrase), salt)

	secret, err := cryptox.EncryptBlob(key, []byte("secret-png-bytes"))
	require.NoError(t, err)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &memBackend{
		items: []models.MediaItem{
			{ID: "a", Filename: "alpha.jpg", SizeBytes: 2048, CreatedAt: created.Add(2 * time.Hour)},
			{ID: "b", Filename: "beta.png", SizeBytes: 4096, CreatedAt: created.Add(time.Hour), IsEncrypted: true},
			{ID: "c", Filename: "clip.mp4", SizeBytes: 1 << 20, CreatedAt: created, IsFavorite: true},
			{ID: "d", Filename: "notes.txt", SizeBytes: 10, CreatedAt: created},
		},
		payloads: map[string][]byte{"b": secret},
		km:       models.KeyMaterial{Salt: salt, Verifier: cryptox.MakeVerifier(key)},
	}
}

func (m *memBackend) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.offline {
		return client.ErrNetwork
	}
	return nil
}

func (m *memBackend) called(call string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.calls, call)
}

func (m *memBackend) Close() error { return nil }

func (m *memBackend) Ping(ctx context.Context) error { return m.record("ping") }

func (m *memBackend) Login(ctx context.Context, username, password string) (models.Tokens, error) {
	if err := m.record("login"); err != nil {
		return models.Tokens{}, err
	}
	if password != "pw" {
		return models.Tokens{}, client.ErrUnauthorized
	}
	return models.Tokens{AccessToken: "access-" + username, RefreshToken: "refresh"}, nil
}

func (m *memBackend) GetKeyMaterial(ctx context.Context) (models.KeyMaterial, error) {
	if err := m.record("key"); err != nil {
		return models.KeyMaterial{}, err
	}
	return m.km, nil
}

func (m *memBackend) ListFiles(ctx context.Context, page, limit int) (*models.Listing, error) {
	if err := m.record("list"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	start := min((page-1)*limit, len(m.items))
	end := min(start+limit, len(m.items))
	return &models.Listing{
		Files:   slices.Clone(m.items[start:end]),
		Total:   len(m.items),
		HasMore: end < len(m.items),
	}, nil
}

func (m *memBackend) GetViewURL(ctx context.Context, id string) (string, error) {
	if err := m.record("view:" + id); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cdnURL != "" {
		return m.cdnURL + "/" + id, nil
	}
	return "https://cdn.example/" + id, nil
}

func (m *memBackend) DownloadEncrypted(ctx context.Context, id string) ([]byte, error) {
	if err := m.record("download:" + id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payloads[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return slices.Clone(p), nil
}

func (m *memBackend) mutate(call, id string, apply func(*models.MediaItem)) (*models.MediaItem, error) {
	if err := m.record(call + ":" + id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutateErr != nil {
		return nil, m.mutateErr
	}
	i := slices.IndexFunc(m.items, func(it models.MediaItem) bool { return it.ID == id })
	if i < 0 {
		return nil, client.ErrNotFound
	}
	apply(&m.items[i])
	out := m.items[i]
	return &out, nil
}

func (m *memBackend) UpdateComment(ctx context.Context, id string, comment *string) (*models.MediaItem, error) {
	return m.mutate("comment", id, func(it *models.MediaItem) { it.Comment = comment })
}

func (m *memBackend) MoveFile(ctx context.Context, id string, folderID *string) (*models.MediaItem, error) {
	return m.mutate("move", id, func(it *models.MediaItem) { it.FolderID = folderID })
}

func (m *memBackend) RenameFile(ctx context.Context, id, filename string) (*models.MediaItem, error) {
	return m.mutate("rename", id, func(it *models.MediaItem) { it.Filename = filename })
}

func (m *memBackend) SetFavorite(ctx context.Context, id string, favorite bool) (*models.MediaItem, error) {
	return m.mutate("favorite", id, func(it *models.MediaItem) { it.IsFavorite = favorite })
}

func (m *memBackend) DeleteFile(ctx context.Context, id string) error {
	_, err := m.mutate("delete", id, func(*models.MediaItem) {})
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = slices.DeleteFunc(m.items, func(it models.MediaItem) bool { return it.ID == id })
	return nil
}

func (m *memBackend) ListVersions(ctx context.Context, id string) ([]models.FileVersion, error) {
	if err := m.record("versions:" + id); err != nil {
		return nil, err
	}
	return []models.FileVersion{{ID: id + "-1", Version: 1, SizeBytes: 100, CreatedAt: time.Now()}}, nil
}

func (m *memBackend) UploadFile(ctx context.Context, filename string, data []byte, encrypted bool) (*models.MediaItem, error) {
	if err := m.record("upload:" + filename); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item := models.MediaItem{ID: "up-" + filename, Filename: filename, SizeBytes: int64(len(data)), CreatedAt: time.Now(), IsEncrypted: encrypted}
	m.items = append(m.items, item)
	m.payloads[item.ID] = slices.Clone(data)
	return &item, nil
}

// testApp is an App wired to a memBackend with captured output.
type testApp struct {
	*App
	backend *memBackend
	store   *session.Store
	urls    *objecturl.Registry
	buf     *bytes.Buffer
}

func newTestApp(t *testing.T, backend *memBackend, input ...string) *testApp {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	log := logging.Nop()
	store := session.NewStore(nil)
	urls := objecturl.NewRegistry()
	r := resolver.New(backend, urls, log)
	rc := cache.New(r.Release, log)

	auth := services.NewAuthService(backend, store, log)
	gallery := services.NewGalleryService(backend, r, rc, store, services.GalleryOptions{PageSize: 50, ThumbnailWorkers: 2}, log)
	v := viewer.New(r, store, log)

	app := newApp(cfg, auth, gallery, v, urls, log)
	buf := &bytes.Buffer{}
	app.out = buf
	app.reader = bufio.NewReader(strings.NewReader(strings.Join(input, "\n")))

	return &testApp{App: app, backend: backend, store: store, urls: urls, buf: buf}
}

// loggedIn returns a testApp with a session and a loaded listing.
func loggedIn(t *testing.T, input ...string) *testApp {
	t.Helper()
	ta := newTestApp(t, newMemBackend(t), input...)
	require.NoError(t, ta.store.SetTokens(context.Background(), models.Tokens{AccessToken: "t", RefreshToken: "r"}))
	require.NoError(t, ta.List(context.Background(), nil))
	ta.buf.Reset()
	return ta
}

// stubPassword makes every secret prompt answer with secret.
func stubPassword(t *testing.T, secret string) *int {
	t.Helper()
	calls := new(int)
	old := getPassword
	getPassword = func(_ *bufio.Reader, _ io.Writer, _ string) ([]byte, error) {
		*calls++
		return []byte(secret), nil
	}
	t.Cleanup(func() { getPassword = old })
	return calls
}
