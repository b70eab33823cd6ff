package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authd/internal/session"
	"github.com/allisson/authd/internal/tenant"
)

// SessionCookieName is the cookie carrying the opaque BFF session identifier.
const SessionCookieName = "authd_session"

// TenantMiddleware resolves and validates the tenant of every request.
//
// Resolution order follows tenant.Resolver: explicit X-Tenant-ID header,
// subdomain, authenticated principal. Requests without a resolvable valid
// tenant are rejected with invalid_request, tenancy fails closed.
//
// Downstream handlers read the tenant via GetTenant().
func TenantMiddleware(resolver *tenant.Resolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := resolver.Resolve(c.Request)
		if !ok {
			logger.Debug("tenant resolution failed", slog.String("path", c.Request.URL.Path))
			invalidRequest(c, "tenant could not be resolved")
			c.Abort()
			return
		}

		if !resolver.Validate(c.Request.Context(), tenantID) {
			logger.Debug("tenant validation failed",
				slog.String("tenant_id", tenantID.String()),
				slog.String("path", c.Request.URL.Path))
			invalidRequest(c, "unknown tenant")
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithTenant(c.Request.Context(), tenantID))
		c.Next()
	}
}

// SessionMiddleware attaches the BFF session of the request, if any.
//
// The middleware never rejects: requests without a session cookie, or with a
// session that expired, continue unauthenticated and the handlers decide
// whether a principal is required. When the session's access token is close
// to expiry the token pair is refreshed inline before the session is loaded.
//
// Downstream handlers read the session via GetSession(); the session's tenant
// also becomes the principal tenant for resolution fallback.
func SessionMiddleware(manager *session.Manager, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || sessionID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if manager.RefreshTokens(ctx, sessionID) {
			logger.Debug("session tokens refreshed")
		}

		sess, err := manager.Get(ctx, sessionID)
		if err != nil {
			logger.Debug("session lookup failed", slog.String("error", err.Error()))
			c.Next()
			return
		}

		ctx = WithSession(ctx, sess)
		ctx = tenant.WithPrincipalTenant(ctx, sess.TenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
