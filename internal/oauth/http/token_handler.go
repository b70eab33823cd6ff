package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	"github.com/allisson/authd/internal/oauth/http/dto"
	oauthUseCase "github.com/allisson/authd/internal/oauth/usecase"
)

// knownGrantType reports whether the grant_type value is one the token
// endpoint implements.
func knownGrantType(grantType string) bool {
	switch grantType {
	case oauthDomain.GrantTypeAuthorizationCode,
		oauthDomain.GrantTypeRefreshToken,
		oauthDomain.GrantTypeClientCredentials,
		oauthDomain.GrantTypePassword:
		return true
	}
	return false
}

// TokenHandler handles the token and revocation endpoints.
type TokenHandler struct {
	tokenUseCase oauthUseCase.TokenUseCase
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(
	tokenUseCase oauthUseCase.TokenUseCase,
	logger *slog.Logger,
) *TokenHandler {
	return &TokenHandler{
		tokenUseCase: tokenUseCase,
		logger:       logger,
	}
}

// TokenEndpointHandler issues tokens for the registered grant types.
// POST /oauth/token - form-encoded per RFC 6749.
func (h *TokenHandler) TokenEndpointHandler(c *gin.Context) {
	var req dto.TokenRequest

	if err := c.ShouldBind(&req); err != nil {
		invalidRequest(c, "malformed request body")
		return
	}

	if err := req.Validate(); err != nil {
		if req.GrantType != "" && !knownGrantType(req.GrantType) {
			handleOAuthError(c, oauthDomain.ErrUnsupportedGrantType, h.logger)
			return
		}
		invalidRequest(c, err.Error())
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		invalidRequest(c, "client_id must be a valid UUID")
		return
	}

	tenantID, ok := GetTenant(c.Request.Context())
	if !ok {
		invalidRequest(c, "tenant could not be resolved")
		return
	}

	input := &oauthDomain.TokenInput{
		GrantType:    req.GrantType,
		TenantID:     tenantID,
		ClientID:     clientID,
		ClientSecret: req.ClientSecret,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: req.CodeVerifier,
		RefreshToken: req.RefreshToken,
		Username:     req.Username,
		Password:     req.Password,
		Scopes:       req.Scopes(),
	}

	output, err := h.tokenUseCase.Token(c.Request.Context(), input)
	if err != nil {
		handleOAuthError(c, err, h.logger)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken:  output.AccessToken,
		TokenType:    output.TokenType,
		ExpiresIn:    output.ExpiresIn,
		RefreshToken: output.RefreshToken,
		IDToken:      output.IDToken,
		Scope:        output.Scope,
	})
}

// RevokeHandler invalidates a refresh token.
// POST /oauth/revoke - per RFC 7009 the response is 200 whether or not the
// token was known, so callers learn nothing about other clients' tokens.
func (h *TokenHandler) RevokeHandler(c *gin.Context) {
	var req dto.RevokeRequest

	if err := c.ShouldBind(&req); err != nil {
		invalidRequest(c, "malformed request body")
		return
	}

	if err := req.Validate(); err != nil {
		invalidRequest(c, "token and client_id are required")
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		invalidRequest(c, "client_id must be a valid UUID")
		return
	}

	input := &oauthDomain.RevokeInput{
		Token:         req.Token,
		TokenTypeHint: req.TokenTypeHint,
		ClientID:      clientID,
	}

	if err := h.tokenUseCase.Revoke(c.Request.Context(), input); err != nil {
		handleOAuthError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
