// Package metadata is the key/value store of the local session database.
// It holds the token pair and the cached key material used for offline
// unlock.
package metadata

import (
	"context"
)

// Key names one persisted session value.
type Key string

const (
	AccessToken  Key = "access_token"
	RefreshToken Key = "refresh_token"
	KeySalt      Key = "key_salt"
	KeyVerifier  Key = "key_verifier"
)

// TokenKeys and KeyMaterialKeys are the groups the session reads together.
var (
	TokenKeys       = []Key{AccessToken, RefreshToken}
	KeyMaterialKeys = []Key{KeySalt, KeyVerifier}
)

// Repository reads and writes session values in groups. Keys that are not
// stored are absent from the map GetMany returns.
type Repository interface {
	GetMany(ctx context.Context, keys ...Key) (map[Key][]byte, error)
	SetMany(ctx context.Context, values map[Key][]byte) error
	Delete(ctx context.Context, keys ...Key) error
	Clear(ctx context.Context) error
}
