package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	oauthUseCase "github.com/allisson/authd/internal/oauth/usecase"
	"github.com/allisson/authd/internal/session"
)

// LogoutHandler handles user logout.
type LogoutHandler struct {
	tokenUseCase   oauthUseCase.TokenUseCase
	sessionManager *session.Manager
	logger         *slog.Logger
}

// NewLogoutHandler creates a new logout handler with required dependencies.
func NewLogoutHandler(
	tokenUseCase oauthUseCase.TokenUseCase,
	sessionManager *session.Manager,
	logger *slog.Logger,
) *LogoutHandler {
	return &LogoutHandler{
		tokenUseCase:   tokenUseCase,
		sessionManager: sessionManager,
		logger:         logger,
	}
}

// LogoutEndpointHandler revokes every live refresh token of the session's
// user and terminates the session.
// POST /oauth/logout - requires an authenticated BFF session. The cookie is
// cleared even when revocation partially fails, a logged-out browser must
// never keep a usable session ID.
func (h *LogoutHandler) LogoutEndpointHandler(c *gin.Context) {
	sess, ok := GetSession(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_required"})
		return
	}

	clearCookie := func() {
		c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
	}

	if err := h.tokenUseCase.Logout(c.Request.Context(), sess.TenantID, sess.UserID); err != nil {
		clearCookie()
		handleOAuthError(c, err, h.logger)
		return
	}

	if err := h.sessionManager.Delete(c.Request.Context(), sess.ID); err != nil {
		h.logger.Warn("failed to delete session on logout",
			slog.String("user_id", sess.UserID.String()),
			slog.String("error", err.Error()))
	}
	clearCookie()

	c.JSON(http.StatusOK, gin.H{})
}
