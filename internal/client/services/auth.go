// Package services contains application services for the gallery client.
// This file defines the authentication service: login, unlocking the master
// key with the decryption passphrase (online or from cached key material),
// liveness probe, and logout housekeeping.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/session"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist the token pair.
//   - Unlock: derive the master key from the passphrase and verify it.
//   - Lock: forget the master key.
//   - Logout: forget tokens, key and cached key material.
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Unlock(ctx context.Context, passphrase []byte) error
	Lock()
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	LoggedIn() bool
	Unlocked() bool
}

// authService is the concrete AuthService backed by a remote Client and the
// session store.
type authService struct {
	client client.Client
	store  *session.Store
	log    logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client and
// session store.
func NewAuthService(c client.Client, store *session.Store, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{client: c, store: store, log: log}
}

func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	if username == "" || len(password) == 0 {
		return fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}

	tokens, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	if err := a.store.SetTokens(ctx, tokens); err != nil {
		return fmt.Errorf("token saving error: %w", err)
	}

	a.log.Info(ctx, "logged in", "user", username)
	return nil
}

// Unlock derives the master key from passphrase and checks it against the
// backend's verifier. When the backend cannot be reached, the locally cached
// salt and verifier are used instead. A wrong passphrase returns
// client.ErrUnauthorized.
func (a *authService) Unlock(ctx context.Context, passphrase []byte) error {
	if len(passphrase) == 0 {
		return fmt.Errorf("%w: passphrase is required", common.ErrValidation)
	}

	km, err := a.keyMaterial(ctx)
	if err != nil {
		return err
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(passphrase, km.Salt)
	defer common.WipeByteArray(masterKeyCandidate)
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)

	if subtle.ConstantTimeCompare(km.Verifier, verifierCandidate) == 0 {
		return client.ErrUnauthorized
	}

	a.store.SetMasterKey(masterKeyCandidate)
	return nil
}

// keyMaterial fetches salt and verifier from the backend and caches them, or
// falls back to the cache when the backend is offline.
func (a *authService) keyMaterial(ctx context.Context) (models.KeyMaterial, error) {
	km, err := a.client.GetKeyMaterial(ctx)
	if err == nil {
		if err := a.store.SetKeyMaterial(ctx, km); err != nil {
			a.log.Warn(ctx, "caching key material failed", "error", err)
		}
		return km, nil
	}

	if !errors.Is(err, client.ErrNetwork) && !errors.Is(err, client.ErrUnavailable) {
		return models.KeyMaterial{}, fmt.Errorf("get key material error: %w", err)
	}

	cached, ok, cerr := a.store.KeyMaterial(ctx)
	if cerr != nil {
		return models.KeyMaterial{}, fmt.Errorf("read cached key material: %w", cerr)
	}
	if !ok {
		return models.KeyMaterial{}, fmt.Errorf("get key material error: %w", err)
	}

	a.log.Info(ctx, "backend offline, unlocking with cached key material")
	return cached, nil
}

func (a *authService) Lock() {
	a.store.Lock()
}

// Logout wipes the session, including cached key material.
func (a *authService) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

func (a *authService) LoggedIn() bool {
	return a.store.LoggedIn()
}

func (a *authService) Unlocked() bool {
	return a.store.Unlocked()
}
