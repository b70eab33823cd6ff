package http

import (
	"context"

	"github.com/google/uuid"

	sessionDomain "github.com/allisson/authd/internal/session/domain"
)

// tenantKey is a context key type for the resolved request tenant.
type tenantKey struct{}

// sessionKey is a context key type for the authenticated BFF session.
type sessionKey struct{}

// WithTenant stores the resolved tenant in the context.
// Set by the tenant middleware after successful resolution and validation.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// GetTenant retrieves the resolved tenant from the context.
// Returns (tenantID, true) if present, or (uuid.Nil, false) if not set.
func GetTenant(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(tenantKey{}).(uuid.UUID)
	return tenantID, ok
}

// WithSession stores the authenticated session in the context.
// Set by the session middleware after cookie validation.
func WithSession(ctx context.Context, session *sessionDomain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSession retrieves the authenticated session from the context.
// Returns (session, true) if present, or (nil, false) if the request carries
// no valid session.
func GetSession(ctx context.Context) (*sessionDomain.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*sessionDomain.Session)
	return session, ok
}
