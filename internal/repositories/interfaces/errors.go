package interfaces

import "errors"

// Storage-level sentinels shared by every repository implementation. The
// engine maps these onto its business error taxonomy.
var (
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateKey is returned when an insert violates a unique index
	// (referral code, member email, or the non-reversed order_id
	// constraint on referral events).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrVersionConflict is returned when a version-guarded member update
	// matched no document, meaning another writer got there first.
	ErrVersionConflict = errors.New("document version conflict")
)
