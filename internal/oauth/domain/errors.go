package domain

import (
	"github.com/allisson/authd/internal/errors"
)

// Authorization errors. The message of each sentinel is the OAuth error code
// sent on the wire, handlers render them verbatim.
var (
	// ErrInvalidRequest indicates a malformed or incomplete request.
	ErrInvalidRequest = errors.Wrap(errors.ErrInvalidInput, "invalid_request")

	// ErrInvalidGrant indicates an invalid, expired, revoked, or replayed
	// code, refresh token, or credential.
	ErrInvalidGrant = errors.Wrap(errors.ErrUnauthorized, "invalid_grant")

	// ErrInvalidClient indicates failed client authentication.
	ErrInvalidClient = errors.Wrap(errors.ErrUnauthorized, "invalid_client")

	// ErrInvalidScope indicates a requested scope outside the granted set.
	ErrInvalidScope = errors.Wrap(errors.ErrInvalidInput, "invalid_scope")

	// ErrUnsupportedGrantType indicates an unknown grant_type value.
	ErrUnsupportedGrantType = errors.Wrap(errors.ErrInvalidInput, "unsupported_grant_type")

	// ErrUnauthorizedClient indicates the client may not use the grant type.
	ErrUnauthorizedClient = errors.Wrap(errors.ErrForbidden, "unauthorized_client")

	// ErrClientNotFound indicates a client with the specified ID was not found.
	ErrClientNotFound = errors.Wrap(errors.ErrNotFound, "client not found")

	// ErrGrantNotFound indicates a grant with the specified ID was not found.
	ErrGrantNotFound = errors.Wrap(errors.ErrNotFound, "grant not found")

	// ErrRefreshTokenNotFound indicates no refresh token matches the hash.
	ErrRefreshTokenNotFound = errors.Wrap(errors.ErrNotFound, "refresh token not found")

	// ErrCodeNotFound indicates the authorization code is unknown, expired,
	// or already consumed.
	ErrCodeNotFound = errors.Wrap(errors.ErrNotFound, "authorization code not found")

	// ErrAuthenticationRequired signals the authorize endpoint that no
	// principal is attached to the request. Not a protocol error, handlers
	// translate it into a login redirect.
	ErrAuthenticationRequired = errors.Wrap(errors.ErrUnauthorized, "authentication required")
)
