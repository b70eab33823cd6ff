package domain

import (
	"github.com/allisson/authd/internal/errors"
)

// Principal errors.
var (
	// ErrUserNotFound indicates a user with the specified ID or username was not found.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrInvalidCredentials indicates authentication failed. Returned for both
	// unknown users and wrong passwords to prevent enumeration.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")
)
