// Package tenant resolves and validates the tenant context of inbound requests.
//
// Resolution is read-only and safe to call concurrently. Validation results are
// cached briefly so hot paths don't hit the store on every request.
package tenant

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/authd/internal/errors"
	tenantDomain "github.com/allisson/authd/internal/tenant/domain"
	tenantUseCase "github.com/allisson/authd/internal/tenant/usecase"
)

// HeaderName is the request header carrying an explicit tenant identifier.
const HeaderName = "X-Tenant-ID"

// validationCacheTTL bounds how stale a cached tenant validation may be.
const validationCacheTTL = 30 * time.Second

// principalTenantKey is a context key type for the authenticated principal's tenant.
type principalTenantKey struct{}

// WithPrincipalTenant stores the authenticated principal's tenant in the context.
// Set by the session middleware after authentication.
func WithPrincipalTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, principalTenantKey{}, tenantID)
}

// PrincipalTenant retrieves the authenticated principal's tenant from the context.
func PrincipalTenant(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(principalTenantKey{}).(uuid.UUID)
	return tenantID, ok
}

// cacheEntry holds a cached validation result.
type cacheEntry struct {
	valid     bool
	expiresAt time.Time
}

// Resolver extracts a tenant identifier from request metadata and validates it
// against the tenant store.
type Resolver struct {
	tenantRepo tenantUseCase.TenantRepository

	mu    sync.Mutex
	cache map[uuid.UUID]cacheEntry
}

// NewResolver creates a tenant resolver backed by the given repository.
func NewResolver(tenantRepo tenantUseCase.TenantRepository) *Resolver {
	return &Resolver{
		tenantRepo: tenantRepo,
		cache:      make(map[uuid.UUID]cacheEntry),
	}
}

// Resolve extracts a tenant identifier from the request. Resolution order:
//
//  1. Explicit X-Tenant-ID header
//  2. Subdomain label when the host has more than two labels
//  3. The authenticated principal's tenant claim from the request context
//
// Returns false if no signal is present; the caller decides whether that is
// fatal. Resolve does not check that the tenant is active, use Validate for that.
func (r *Resolver) Resolve(req *http.Request) (uuid.UUID, bool) {
	// 1. Explicit header
	if header := req.Header.Get(HeaderName); header != "" {
		if tenantID, err := uuid.Parse(header); err == nil {
			return tenantID, true
		}
		return uuid.Nil, false
	}

	// 2. Subdomain segment (e.g. "acme" in acme.auth.example.com)
	host := req.Host
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	if labels := strings.Split(host, "."); len(labels) > 2 {
		subdomain := strings.ToLower(labels[0])
		if subdomain != "" {
			tenant, err := r.tenantRepo.GetByDomain(req.Context(), subdomain)
			if err == nil {
				return tenant.ID, true
			}
		}
	}

	// 3. Authenticated principal's tenant claim
	if tenantID, ok := PrincipalTenant(req.Context()); ok {
		return tenantID, true
	}

	return uuid.Nil, false
}

// Validate looks up the tenant and returns true only if it exists and is
// active. Results are cached for a short window.
func (r *Resolver) Validate(ctx context.Context, tenantID uuid.UUID) bool {
	now := time.Now()

	r.mu.Lock()
	if entry, ok := r.cache[tenantID]; ok && now.Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.valid
	}
	r.mu.Unlock()

	tenant, err := r.tenantRepo.Get(ctx, tenantID)
	valid := err == nil && tenant.IsActive

	// Store lookup failures are not cached: a transient store error must not
	// pin a tenant invalid for the cache window.
	if err == nil || apperrors.Is(err, tenantDomain.ErrTenantNotFound) {
		r.mu.Lock()
		r.cache[tenantID] = cacheEntry{valid: valid, expiresAt: now.Add(validationCacheTTL)}
		r.mu.Unlock()
	}

	return valid
}
