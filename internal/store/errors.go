package store

import "errors"

// Failure taxonomy for store operations. Callers match with errors.Is.
var (
	// ErrSnapshotNotFound reports an id that is not part of the key's chain.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNoHistory reports a storage key with no snapshot chain yet.
	ErrNoHistory = errors.New("no history")

	// ErrNotFound reports a storage key absent from the repository.
	ErrNotFound = errors.New("not found")

	// ErrStaleSelection reports a previously listed snapshot that has been
	// deleted since, typically by another session.
	ErrStaleSelection = errors.New("selection no longer exists")
)
