// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/service layers.
var (
	// ErrNotFound indicates the requested record does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrUserNotFound indicates the target user identity has no profile in the store.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound indicates the referenced drinking session is absent
	// from the local draft cache.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnauthorized indicates failed authentication (bad credentials or no signed-in identity).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a record with the same key already exists (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)
