// Package session manages server-side BFF sessions.
//
// A session binds an opaque cookie value to the token set issued for a user.
// Tokens stay on the server; the browser only ever holds the session ID. The
// manager refreshes the access token inline when a session is used close to
// token expiry.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/config"
	apperrors "github.com/allisson/authd/internal/errors"
	sessionDomain "github.com/allisson/authd/internal/session/domain"
)

// refreshTimeout bounds the inline token refresh call.
const refreshTimeout = 5 * time.Second

// Store defines the persistence operations the manager needs.
type Store interface {
	Save(ctx context.Context, session *sessionDomain.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*sessionDomain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// CreateInput contains the parameters for establishing a session after a
// successful token issuance.
type CreateInput struct {
	UserID       uuid.UUID
	Username     string
	TenantID     uuid.UUID
	ClientID     uuid.UUID
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresIn    int64
}

// Manager creates, loads, refreshes, and terminates BFF sessions.
type Manager struct {
	store      Store
	config     *config.Config
	httpClient *http.Client
}

// NewManager creates a session manager backed by the given store.
func NewManager(store Store, cfg *config.Config) *Manager {
	return &Manager{
		store:      store,
		config:     cfg,
		httpClient: &http.Client{Timeout: refreshTimeout},
	}
}

// Create establishes a new session with a fresh opaque identifier.
func (m *Manager) Create(ctx context.Context, input *CreateInput) (*sessionDomain.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate session id")
	}

	now := time.Now().UTC()
	session := &sessionDomain.Session{
		ID:                   sessionID,
		UserID:               input.UserID,
		Username:             input.Username,
		TenantID:             input.TenantID,
		ClientID:             input.ClientID,
		AccessToken:          input.AccessToken,
		RefreshToken:         input.RefreshToken,
		IDToken:              input.IDToken,
		AccessTokenExpiresAt: now.Add(time.Duration(input.ExpiresIn) * time.Second),
		CreatedAt:            now,
		LastAccessedAt:       now,
	}

	if err := m.store.Save(ctx, session, m.config.SessionExpiration); err != nil {
		return nil, err
	}
	return session, nil
}

// Get loads a session and slides its expiration window. The save-back is
// best effort, a read must not fail because the touch did.
func (m *Manager) Get(ctx context.Context, sessionID string) (*sessionDomain.Session, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.LastAccessedAt = time.Now().UTC()
	if err := m.store.Save(ctx, session, m.config.SessionExpiration); err != nil {
		slog.Warn("failed to touch session", slog.String("error", err.Error()))
	}
	return session, nil
}

// Delete terminates a session. Idempotent.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// RefreshTokens renews the session's token pair when the access token is
// within the configured margin of expiry. Returns true only when the pair was
// replaced; any failure leaves the session untouched and returns false.
func (m *Manager) RefreshTokens(ctx context.Context, sessionID string) bool {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return false
	}

	if !session.NeedsRefresh(m.config.SessionRefreshMargin, time.Now().UTC()) {
		return false
	}

	output, err := m.requestRefresh(ctx, session)
	if err != nil {
		slog.Warn("session token refresh failed",
			slog.String("user_id", session.UserID.String()),
			slog.String("error", err.Error()))
		return false
	}

	session.AccessToken = output.AccessToken
	if output.RefreshToken != "" {
		session.RefreshToken = output.RefreshToken
	}
	if output.IDToken != "" {
		session.IDToken = output.IDToken
	}
	session.AccessTokenExpiresAt = time.Now().UTC().Add(time.Duration(output.ExpiresIn) * time.Second)
	session.LastAccessedAt = time.Now().UTC()

	if err := m.store.Save(ctx, session, m.config.SessionExpiration); err != nil {
		slog.Warn("failed to save refreshed session",
			slog.String("user_id", session.UserID.String()),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// refreshResponse is the subset of the token endpoint response the manager
// consumes.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// requestRefresh plays the refresh_token grant against the token endpoint.
func (m *Manager) requestRefresh(ctx context.Context, session *sessionDomain.Session) (*refreshResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", session.RefreshToken)
	form.Set("client_id", session.ClientID.String())

	endpoint := strings.TrimRight(m.config.Issuer, "/") + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build refresh request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Tenant-ID", session.TenantID.String())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "token endpoint refused refresh")
	}

	var output refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&output); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode refresh response")
	}
	if output.AccessToken == "" {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "refresh response missing access token")
	}
	return &output, nil
}

// generateSessionID returns a 256-bit random identifier.
func generateSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
