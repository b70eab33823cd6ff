package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	"github.com/allisson/authd/internal/oauth/http/dto"
	oauthUseCase "github.com/allisson/authd/internal/oauth/usecase"
)

// loginPath is where unauthenticated authorization requests are sent.
const loginPath = "/login"

// AuthorizeHandler handles the authorization endpoint.
type AuthorizeHandler struct {
	authorizeUseCase oauthUseCase.AuthorizeUseCase
	logger           *slog.Logger
}

// NewAuthorizeHandler creates a new authorize handler with required dependencies.
func NewAuthorizeHandler(
	authorizeUseCase oauthUseCase.AuthorizeUseCase,
	logger *slog.Logger,
) *AuthorizeHandler {
	return &AuthorizeHandler{
		authorizeUseCase: authorizeUseCase,
		logger:           logger,
	}
}

// AuthorizeEndpointHandler starts the authorization code flow.
// GET /oauth/authorize - the principal comes from the BFF session; requests
// without one are redirected to the login page with the original URL as
// return target. On success the user agent is redirected to the registered
// redirect URI carrying the code and the client's state.
func (h *AuthorizeHandler) AuthorizeEndpointHandler(c *gin.Context) {
	var req dto.AuthorizeRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		invalidRequest(c, "malformed query string")
		return
	}

	if err := req.Validate(); err != nil {
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

	session, ok := GetSession(c.Request.Context())
	if !ok {
		h.redirectToLogin(c)
		return
	}

	input := &oauthDomain.AuthorizeInput{
		TenantID:            tenantID,
		SubjectID:           session.UserID,
		ClientID:            clientID,
		RedirectURI:         req.RedirectURI,
		Scopes:              req.Scopes(),
		Resources:           req.Resources,
		State:               req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	}

	output, err := h.authorizeUseCase.Authorize(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, oauthDomain.ErrAuthenticationRequired) {
			h.redirectToLogin(c)
			return
		}
		handleOAuthError(c, err, h.logger)
		return
	}

	target, err := url.Parse(output.RedirectURI)
	if err != nil {
		handleOAuthError(c, err, h.logger)
		return
	}
	query := target.Query()
	query.Set("code", output.Code)
	if output.State != "" {
		query.Set("state", output.State)
	}
	target.RawQuery = query.Encode()

	c.Redirect(http.StatusFound, target.String())
}

// redirectToLogin sends the user agent to the login page, preserving the
// authorization request so the flow can resume after authentication.
func (h *AuthorizeHandler) redirectToLogin(c *gin.Context) {
	returnTo := url.QueryEscape(c.Request.URL.RequestURI())
	c.Redirect(http.StatusFound, loginPath+"?return_to="+returnTo)
}
