package client

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

// Client is the backend contract consumed by the gallery. Every method
// honors ctx cancellation and maps failures to the sentinel errors in this
// package.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Login(ctx context.Context, username, password string) (models.Tokens, error)
	GetKeyMaterial(ctx context.Context) (models.KeyMaterial, error)

	ListFiles(ctx context.Context, page, limit int) (*models.Listing, error)
	GetViewURL(ctx context.Context, id string) (string, error)
	DownloadEncrypted(ctx context.Context, id string) ([]byte, error)

	UpdateComment(ctx context.Context, id string, comment *string) (*models.MediaItem, error)
	MoveFile(ctx context.Context, id string, folderID *string) (*models.MediaItem, error)
	RenameFile(ctx context.Context, id, filename string) (*models.MediaItem, error)
	SetFavorite(ctx context.Context, id string, favorite bool) (*models.MediaItem, error)
	DeleteFile(ctx context.Context, id string) error
	ListVersions(ctx context.Context, id string) ([]models.FileVersion, error)
	UploadFile(ctx context.Context, filename string, data []byte, encrypted bool) (*models.MediaItem, error)
}

// TokenStore holds the bearer token pair. The HTTP client reads it before
// each request and writes it back after a refresh.
type TokenStore interface {
	Tokens() models.Tokens
	SetTokens(ctx context.Context, tokens models.Tokens) error
}
