package repository

import "errors"

// Generic repository errors
var (
	// ErrNotFound means the requested record does not exist
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means an insert violated a unique constraint
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Per-resource aliases, so callers can be explicit about what was missing.
var (
	ErrRoomNotFound     = ErrNotFound
	ErrCodeNotFound     = ErrNotFound
	ErrSnapshotNotFound = ErrNotFound
)

// ErrProviderNotConfigured means an external provider has no credentials configured.
// Implementations return it without contacting the provider.
var ErrProviderNotConfigured = errors.New("repository: provider credentials not configured")
