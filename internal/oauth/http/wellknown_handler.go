package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/authd/internal/config"
	"github.com/allisson/authd/internal/httputil"
	keysService "github.com/allisson/authd/internal/keys/service"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	"github.com/allisson/authd/internal/oauth/http/dto"
	"github.com/allisson/authd/internal/tenant"
)

// WellKnownHandler serves the JWKS and OpenID Connect discovery documents.
type WellKnownHandler struct {
	keyManager keysService.KeyManager
	resolver   *tenant.Resolver
	config     *config.Config
	logger     *slog.Logger
}

// NewWellKnownHandler creates a new well-known handler with required dependencies.
func NewWellKnownHandler(
	keyManager keysService.KeyManager,
	resolver *tenant.Resolver,
	cfg *config.Config,
	logger *slog.Logger,
) *WellKnownHandler {
	return &WellKnownHandler{
		keyManager: keyManager,
		resolver:   resolver,
		config:     cfg,
		logger:     logger,
	}
}

// JWKSHandler publishes the public validation keys.
// GET /.well-known/jwks.json - tenant resolution is optional here: requests
// without a tenant get the global key set, tenant-scoped requests get the
// tenant's keys. Keys inside the grace window stay in the set so tokens
// signed before a rotation keep validating.
func (h *WellKnownHandler) JWKSHandler(c *gin.Context) {
	var scope *uuid.UUID
	if tenantID, ok := h.resolver.Resolve(c.Request); ok {
		scope = &tenantID
	}

	jwks, err := h.keyManager.JWKS(c.Request.Context(), scope)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, jwks)
}

// DiscoveryHandler publishes the OpenID Connect discovery document.
// GET /.well-known/openid-configuration
func (h *WellKnownHandler) DiscoveryHandler(c *gin.Context) {
	issuer := strings.TrimRight(h.config.Issuer, "/")

	c.JSON(http.StatusOK, dto.DiscoveryResponse{
		Issuer:                issuer,
		AuthorizationEndpoint: issuer + "/oauth/authorize",
		TokenEndpoint:         issuer + "/oauth/token",
		RevocationEndpoint:    issuer + "/oauth/revoke",
		EndSessionEndpoint:    issuer + "/oauth/logout",
		JWKSURI:               issuer + "/.well-known/jwks.json",
		ResponseTypesSupported: []string{"code"},
		GrantTypesSupported: []string{
			oauthDomain.GrantTypeAuthorizationCode,
			oauthDomain.GrantTypeRefreshToken,
			oauthDomain.GrantTypeClientCredentials,
			oauthDomain.GrantTypePassword,
		},
		ScopesSupported: []string{
			oauthDomain.ScopeOpenID,
			oauthDomain.ScopeProfile,
			oauthDomain.ScopeEmail,
		},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post"},
	})
}
