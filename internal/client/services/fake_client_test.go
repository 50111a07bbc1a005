package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

// ---- fake client ----

// fakeClient implements client.Client for service unit tests. Zero-valued
// fields mean success with an empty result.
type fakeClient struct {
	mu sync.Mutex

	PingErr  error
	CloseErr error

	LoginRet models.Tokens
	LoginErr error

	KeyMaterialRet models.KeyMaterial
	KeyMaterialErr error

	Pages   map[int]*models.Listing
	ListErr error

	ViewErr  error
	Payloads map[string][]byte

	MutateErr   error
	ReturnEmpty bool
	UploadRet   *models.MediaItem
	UploadErr   error
	Versions    []models.FileVersion

	// recorded calls
	Calls        []string
	LastComment  *string
	LastFavorite *bool
	LastUpload   []byte
	LastEncFlag  bool
	ListCalls    int
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *fakeClient) Close() error { return f.CloseErr }

func (f *fakeClient) Ping(ctx context.Context) error {
	f.record("ping")
	return f.PingErr
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (models.Tokens, error) {
	f.record("login")
	return f.LoginRet, f.LoginErr
}

func (f *fakeClient) GetKeyMaterial(ctx context.Context) (models.KeyMaterial, error) {
	f.record("key")
	return f.KeyMaterialRet, f.KeyMaterialErr
}

func (f *fakeClient) ListFiles(ctx context.Context, page, limit int) (*models.Listing, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if l, ok := f.Pages[page]; ok {
		return l, nil
	}
	return &models.Listing{}, nil
}

func (f *fakeClient) GetViewURL(ctx context.Context, id string) (string, error) {
	f.record("view:" + id)
	if f.ViewErr != nil {
		return "", f.ViewErr
	}
	return "https://cdn.example/" + id, nil
}

func (f *fakeClient) DownloadEncrypted(ctx context.Context, id string) ([]byte, error) {
	f.record("download:" + id)
	p, ok := f.Payloads[id]
	if !ok {
		return nil, &client.HTTPError{StatusCode: 404}
	}
	return p, nil
}

func (f *fakeClient) mutate(call, id string, apply func(*models.MediaItem)) (*models.MediaItem, error) {
	f.record(call + ":" + id)
	if f.MutateErr != nil {
		return nil, f.MutateErr
	}
	if f.ReturnEmpty {
		return nil, nil
	}
	item := &models.MediaItem{ID: id, Filename: "server.jpg"}
	apply(item)
	return item, nil
}

func (f *fakeClient) UpdateComment(ctx context.Context, id string, comment *string) (*models.MediaItem, error) {
	f.mu.Lock()
	f.LastComment = comment
	f.mu.Unlock()
	return f.mutate("comment", id, func(it *models.MediaItem) { it.Comment = comment })
}

func (f *fakeClient) MoveFile(ctx context.Context, id string, folderID *string) (*models.MediaItem, error) {
	return f.mutate("move", id, func(it *models.MediaItem) { it.FolderID = folderID })
}

func (f *fakeClient) RenameFile(ctx context.Context, id, filename string) (*models.MediaItem, error) {
	return f.mutate("rename", id, func(it *models.MediaItem) { it.Filename = filename })
}

func (f *fakeClient) SetFavorite(ctx context.Context, id string, favorite bool) (*models.MediaItem, error) {
	f.mu.Lock()
	f.LastFavorite = &favorite
	f.mu.Unlock()
	return f.mutate("favorite", id, func(it *models.MediaItem) { it.IsFavorite = favorite })
}

func (f *fakeClient) DeleteFile(ctx context.Context, id string) error {
	f.record("delete:" + id)
	return f.MutateErr
}

func (f *fakeClient) ListVersions(ctx context.Context, id string) ([]models.FileVersion, error) {
	f.record("versions:" + id)
	return f.Versions, f.MutateErr
}

func (f *fakeClient) UploadFile(ctx context.Context, filename string, data []byte, encrypted bool) (*models.MediaItem, error) {
	f.record("upload:" + filename)
	f.mu.Lock()
	f.LastUpload = data
	f.LastEncFlag = encrypted
	f.mu.Unlock()
	return f.UploadRet, f.UploadErr
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
