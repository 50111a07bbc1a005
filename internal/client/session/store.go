// Package session holds the credentials of the signed-in user: the bearer
// token pair, persisted in the local session database, and the master key,
// which lives in memory only.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
)

// Store is safe for concurrent use. It satisfies client.TokenStore and
// resolver.SessionContext.
type Store struct {
	db *sql.DB

	mu        sync.RWMutex
	tokens    models.Tokens
	masterKey []byte
}

// NewStore returns a store persisting to db. A nil db keeps everything in
// memory.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load reads persisted tokens.
func (s *Store) Load(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	vals, err := metadata.NewSQLiteRepository(s.db).GetMany(ctx, metadata.TokenKeys...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tokens = models.Tokens{
		AccessToken:  string(vals[metadata.AccessToken]),
		RefreshToken: string(vals[metadata.RefreshToken]),
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Tokens() models.Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// SetTokens persists tokens, then makes them current.
func (s *Store) SetTokens(ctx context.Context, tokens models.Tokens) error {
	if err := s.persist(ctx, map[metadata.Key][]byte{
		metadata.AccessToken:  []byte(tokens.AccessToken),
		metadata.RefreshToken: []byte(tokens.RefreshToken),
	}); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	return nil
}

func (s *Store) AccessToken() string {
	return s.Tokens().AccessToken
}

func (s *Store) LoggedIn() bool {
	return s.AccessToken() != ""
}

// MasterKey returns a copy of the key. The caller may wipe it.
func (s *Store) MasterKey() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.masterKey) == 0 {
		return nil, false
	}
	return append([]byte(nil), s.masterKey...), true
}

// SetMasterKey stores a copy of key, wiping any previous one.
func (s *Store) SetMasterKey(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	common.WipeByteArray(s.masterKey)
	s.masterKey = append([]byte(nil), key...)
}

func (s *Store) Unlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.masterKey) > 0
}

// Lock wipes the master key.
func (s *Store) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	common.WipeByteArray(s.masterKey)
	s.masterKey = nil
}

// KeyMaterial returns the cached salt and verifier, if any.
func (s *Store) KeyMaterial(ctx context.Context) (models.KeyMaterial, bool, error) {
	if s.db == nil {
		return models.KeyMaterial{}, false, nil
	}
	vals, err := metadata.NewSQLiteRepository(s.db).GetMany(ctx, metadata.KeyMaterialKeys...)
	if err != nil {
		return models.KeyMaterial{}, false, err
	}
	salt, verifier := vals[metadata.KeySalt], vals[metadata.KeyVerifier]
	if len(salt) == 0 || len(verifier) == 0 {
		return models.KeyMaterial{}, false, nil
	}
	return models.KeyMaterial{Salt: salt, Verifier: verifier}, true, nil
}

// SetKeyMaterial caches salt and verifier for offline unlock.
func (s *Store) SetKeyMaterial(ctx context.Context, km models.KeyMaterial) error {
	return s.persist(ctx, map[metadata.Key][]byte{
		metadata.KeySalt:     km.Salt,
		metadata.KeyVerifier: km.Verifier,
	})
}

// Clear wipes the key and forgets tokens and cached key material.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	common.WipeByteArray(s.masterKey)
	s.masterKey = nil
	s.tokens = models.Tokens{}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return metadata.NewSQLiteRepository(s.db).Clear(ctx)
}

func (s *Store) persist(ctx context.Context, values map[metadata.Key][]byte) error {
	if s.db == nil {
		return nil
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SetMany(ctx, values)
	})
}
