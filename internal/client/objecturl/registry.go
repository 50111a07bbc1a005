// Package objecturl keeps decrypted media bytes in memory behind opaque
// object URLs until they are revoked.
package objecturl

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Scheme prefixes every URL issued by a Registry.
const Scheme = "blob:gophgallery/"

// ErrUnknownURL is returned by Lookup for revoked or foreign URLs.
var ErrUnknownURL = errors.New("unknown object url")

// Object is the payload behind an object URL.
type Object struct {
	Data     []byte
	MimeType string
}

// Registry maps object URLs to in-memory payloads. It is safe for
// concurrent use.
type Registry struct {
	objects *xsync.MapOf[string, Object]
}

func NewRegistry() *Registry {
	return &Registry{objects: xsync.NewMapOf[string, Object]()}
}

// Create stores data and returns a fresh URL for it.
func (r *Registry) Create(data []byte, mimeType string) string {
	u := Scheme + uuid.NewString()
	r.objects.Store(u, Object{Data: data, MimeType: mimeType})
	metrics.ObjectURLsLive.Inc()
	return u
}

// Lookup returns the payload behind u.
func (r *Registry) Lookup(u string) (Object, error) {
	obj, ok := r.objects.Load(u)
	if !ok {
		return Object{}, ErrUnknownURL
	}
	return obj, nil
}

// Revoke drops u and zeroes its bytes. It reports whether u was live, so a
// second revoke of the same URL is a no-op.
func (r *Registry) Revoke(u string) bool {
	if !strings.HasPrefix(u, Scheme) {
		return false
	}
	obj, ok := r.objects.LoadAndDelete(u)
	if !ok {
		return false
	}
	clear(obj.Data)
	metrics.ObjectURLsLive.Dec()
	return true
}

// Len is the number of live URLs.
func (r *Registry) Len() int {
	return r.objects.Size()
}

// IsObjectURL reports whether u was issued by a Registry.
func IsObjectURL(u string) bool {
	return strings.HasPrefix(u, Scheme)
}
