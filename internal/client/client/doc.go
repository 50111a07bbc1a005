// Package client contains the backend API contract used by the gallery and
// its REST/JSON implementation.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) covering
//     login, key material, paged listing, view URLs, encrypted downloads,
//     file mutations and uploads.
//  2. A concrete HTTP implementation (see HTTPClient) that attaches the
//     bearer token from a TokenStore, refreshes expired tokens once and
//     retries, and maps error bodies to sentinel errors.
//
// # Error Handling
//
// Non-2xx responses are returned as *HTTPError, which unwraps to one of
// ErrUnauthorized, ErrNotFound or ErrUnavailable. Transport failures wrap
// ErrNetwork. Match them with errors.Is.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. Concurrent requests that hit an
// expired token share a single refresh. All operations honor ctx.
package client
