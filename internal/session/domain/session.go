// Package domain defines the BFF session entity.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/errors"
)

// ErrSessionNotFound indicates no session exists for the given identifier.
var ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")

// Session holds the token set issued to a browser-facing client. The session
// identifier is an opaque random value kept in a cookie; tokens never leave
// the server side.
type Session struct {
	ID                   string     `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	Username             string     `json:"username"`
	TenantID             uuid.UUID  `json:"tenant_id"`
	ClientID             uuid.UUID  `json:"client_id"`
	AccessToken          string     `json:"access_token"`
	RefreshToken         string     `json:"refresh_token,omitempty"`
	IDToken              string     `json:"id_token,omitempty"`
	AccessTokenExpiresAt time.Time  `json:"access_token_expires_at"`
	CreatedAt            time.Time  `json:"created_at"`
	LastAccessedAt       time.Time  `json:"last_accessed_at"`
}

// NeedsRefresh reports whether the access token expires within the given
// margin and a refresh token is available to renew it.
func (s *Session) NeedsRefresh(margin time.Duration, now time.Time) bool {
	if s.RefreshToken == "" {
		return false
	}
	return now.Add(margin).After(s.AccessTokenExpiresAt)
}
