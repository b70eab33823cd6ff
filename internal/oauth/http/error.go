// Package http provides HTTP handlers and middleware for the OAuth endpoints.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/authd/internal/errors"
	"github.com/allisson/authd/internal/oauth/domain"
	"github.com/allisson/authd/internal/oauth/http/dto"
)

// handleOAuthError renders an error in the OAuth wire format. Protocol
// sentinels carry their wire code as message; everything else collapses into
// server_error or temporarily_unavailable so internals never leak.
func handleOAuthError(c *gin.Context, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, domain.ErrInvalidClient):
		c.Header("WWW-Authenticate", `Basic realm="oauth"`)
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid_client"})
	case errors.Is(err, domain.ErrInvalidGrant):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_grant"})
	case errors.Is(err, domain.ErrInvalidScope):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_scope"})
	case errors.Is(err, domain.ErrUnsupportedGrantType):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unsupported_grant_type"})
	case errors.Is(err, domain.ErrUnauthorizedClient):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unauthorized_client"})
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, apperrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_request"})
	case errors.Is(err, apperrors.ErrUnavailable):
		logger.Warn("dependency unavailable", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "temporarily_unavailable"})
	default:
		logger.Error("internal server error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "server_error"})
	}
}

// invalidRequest renders an invalid_request error with a description.
func invalidRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:            "invalid_request",
		ErrorDescription: description,
	})
}
