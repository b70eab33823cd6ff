package domain

import (
	"github.com/allisson/authd/internal/errors"
)

// Signing key errors.
var (
	// ErrKeyNotFound indicates no signing key exists for the requested scope.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "signing key not found")

	// ErrCurrentKeyExists indicates another writer already created the current
	// key for this scope. The caller should read back the winner's key.
	ErrCurrentKeyExists = errors.Wrap(errors.ErrConflict, "current signing key already exists")
)
