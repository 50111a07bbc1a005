// Package common contains shared constants, sentinel errors and small helpers
// used across the gallery client layers.
package common

// AuthorizationHeaderName carries the bearer access token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// MasterKeySize is the length in bytes of a derived master key (AES-256).
const MasterKeySize = 32
