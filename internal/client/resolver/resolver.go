// Package resolver turns a media item into a displayable resource.
//
// Plaintext items resolve to a time-limited view URL issued by the backend.
// Encrypted items are downloaded, decrypted with the session master key and
// exposed through an object URL that must be released when no longer shown.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/objecturl"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/mediatypes"
	"github.com/dmitrijs2005/gophgallery/internal/metrics"
)

// API is the part of the backend the resolver needs.
type API interface {
	GetViewURL(ctx context.Context, id string) (string, error)
	DownloadEncrypted(ctx context.Context, id string) ([]byte, error)
}

// SessionContext supplies credentials for one resolution.
//
// MasterKey returns a copy of the key, which the caller wipes after use, and
// false when the session is locked.
type SessionContext interface {
	AccessToken() string
	MasterKey() ([]byte, bool)
}

type Resolver struct {
	api  API
	urls *objecturl.Registry
	log  logging.Logger
}

func New(api API, urls *objecturl.Registry, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.Nop()
	}
	return &Resolver{api: api, urls: urls, log: log}
}

// Resolve produces a resource for item. Encrypted items fail with
// common.ErrKeyRequired before any network call when sess holds no key.
func (r *Resolver) Resolve(ctx context.Context, item models.MediaItem, sess SessionContext) (*models.ResolvedResource, error) {
	if item.ID == "" {
		return nil, fmt.Errorf("%w: item id is empty", common.ErrValidation)
	}

	path := string(models.ResourceKindURL)
	if item.IsEncrypted {
		path = string(models.ResourceKindBlob)
	}

	start := time.Now()
	res, err := r.resolve(ctx, item, sess)
	metrics.ResolutionDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	metrics.ResolutionsTotal.WithLabelValues(path, outcome(err)).Inc()

	if err != nil {
		r.log.Debug(ctx, "resolve failed", "id", item.ID, "path", path, "error", err)
		return nil, err
	}
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, item models.MediaItem, sess SessionContext) (*models.ResolvedResource, error) {
	if !item.IsEncrypted {
		u, err := r.api.GetViewURL(withToken(ctx, sess), item.ID)
		if err != nil {
			return nil, fmt.Errorf("view url for %s: %w", item.ID, err)
		}
		return &models.ResolvedResource{
			ItemID:   item.ID,
			Kind:     models.ResourceKindURL,
			Value:    u,
			MimeType: item.DisplayMimeType(),
		}, nil
	}

	if sess == nil {
		return nil, common.ErrKeyRequired
	}
	key, ok := sess.MasterKey()
	if !ok || len(key) == 0 {
		return nil, common.ErrKeyRequired
	}
	defer common.WipeByteArray(key)

	payload, err := r.api.DownloadEncrypted(withToken(ctx, sess), item.ID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.ID, err)
	}

	plain, err := cryptox.DecryptBlob(key, payload)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", item.ID, err)
	}

	mimeType := mediatypes.MimeTypeOf(item.Filename)
	return &models.ResolvedResource{
		ItemID:   item.ID,
		Kind:     models.ResourceKindBlob,
		Value:    r.urls.Create(plain, mimeType),
		MimeType: mimeType,
	}, nil
}

// Release frees the handle behind res. URL resources and handles that were
// already released are ignored.
func (r *Resolver) Release(res *models.ResolvedResource) {
	if res == nil || res.Kind != models.ResourceKindBlob {
		return
	}
	r.urls.Revoke(res.Value)
}

// Registry is the object URL registry the resolver mints blob handles in.
func (r *Resolver) Registry() *objecturl.Registry {
	return r.urls
}

func withToken(ctx context.Context, sess SessionContext) context.Context {
	if sess == nil {
		return ctx
	}
	if token := sess.AccessToken(); token != "" {
		return client.WithAccessToken(ctx, token)
	}
	return ctx
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "resolved"
	case errors.Is(err, common.ErrKeyRequired):
		return "key_required"
	default:
		return string(StateFor(err))
	}
}
