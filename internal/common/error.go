package common

import "errors"

var (
	// ErrKeyRequired is returned when an encrypted item is requested while no
	// master key is held by the session. Callers must prompt for the passphrase.
	ErrKeyRequired = errors.New("master key required")

	// ErrValidation marks input rejected before any network call.
	ErrValidation = errors.New("validation error")

	// ErrTokenExpired is the error code the backend reports for stale access tokens.
	ErrTokenExpired = errors.New("token expired")

	// ErrNotLoggedIn is returned when no access token is stored.
	ErrNotLoggedIn = errors.New("not logged in")
)
