// Package integration provides end-to-end tests for the authorization server
// HTTP API against a real PostgreSQL database and an in-process Redis.
package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authd/internal/app"
	"github.com/allisson/authd/internal/config"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	"github.com/allisson/authd/internal/tenant"
	tenantDomain "github.com/allisson/authd/internal/tenant/domain"
	"github.com/allisson/authd/internal/testutil"
	userDomain "github.com/allisson/authd/internal/user/domain"
)

const testIssuer = "https://auth.example.com"

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container    *app.Container
	db           *sql.DB
	server       *httptest.Server
	tenantID     uuid.UUID
	userID       uuid.UUID
	clientID     uuid.UUID
	clientSecret string
}

// tokenResponse mirrors the token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	Scope        string `json:"scope"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// postForm performs a form POST with the tenant header and decodes the
// response as a token payload.
func (ctx *integrationTestContext) postForm(t *testing.T, path string, form url.Values) (int, *tokenResponse) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, ctx.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err, "failed to create request")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(tenant.HeaderName, ctx.tenantID.String())

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	var payload tokenResponse
	require.NoError(t, json.Unmarshal(body, &payload), "failed to decode response: %s", string(body))

	return resp.StatusCode, &payload
}

// get performs a GET request and returns the status and the raw body.
func (ctx *integrationTestContext) get(t *testing.T, path string, headers map[string]string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ctx.server.URL+path, nil)
	require.NoError(t, err, "failed to create request")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	return resp.StatusCode, body
}

// setupIntegrationTest provisions a tenant, a user, and a client against a
// real database, then serves the application over httptest.
func setupIntegrationTest(t *testing.T) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		ServerHost:                  "localhost",
		ServerPort:                  8080,
		Issuer:                      testIssuer,
		DBDriver:                    "postgres",
		DBConnectionString:          testutil.GetPostgresTestDSN(),
		DBMaxOpenConnections:        10,
		DBMaxIdleConnections:        5,
		DBConnMaxLifetime:           time.Hour,
		RedisAddr:                   mr.Addr(),
		LogLevel:                    "error",
		AccessTokenExpiration:       15 * time.Minute,
		RefreshTokenExpiration:      720 * time.Hour,
		RefreshTokenRetention:       2160 * time.Hour,
		AuthorizationCodeExpiration: time.Minute,
		KeyRotationPeriod:           24 * time.Hour,
		KeyGracePeriod:              time.Hour,
		KeyRotationCheckInterval:    time.Hour,
	}

	container := app.NewContainer(cfg)

	tenantUseCase, err := container.TenantUseCase()
	require.NoError(t, err, "failed to get tenant use case")

	testTenant, err := tenantUseCase.Create(context.Background(), &tenantDomain.CreateTenantInput{
		Name:     "Integration Tenant",
		Domain:   "integration",
		IsActive: true,
	})
	require.NoError(t, err, "failed to create tenant")

	userUseCase, err := container.UserUseCase()
	require.NoError(t, err, "failed to get user use case")

	user, err := userUseCase.Create(context.Background(), &userDomain.CreateUserInput{
		Username: "alice",
		Password: "Correct-h0rse-battery",
		TenantID: testTenant.ID,
	})
	require.NoError(t, err, "failed to create user")

	clientUseCase, err := container.ClientUseCase()
	require.NoError(t, err, "failed to get client use case")

	clientOutput, err := clientUseCase.Create(context.Background(), &oauthDomain.CreateClientInput{
		TenantID:     testTenant.ID,
		Name:         "Integration Client",
		RedirectURIs: []string{"https://app.example.com/callback"},
		GrantTypes: []string{
			oauthDomain.GrantTypeAuthorizationCode,
			oauthDomain.GrantTypeRefreshToken,
			oauthDomain.GrantTypeClientCredentials,
			oauthDomain.GrantTypePassword,
		},
		IsConfidential: true,
	})
	require.NoError(t, err, "failed to create client")

	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to get HTTP server")

	testServer := httptest.NewServer(httpSrv.GetHandler())

	return &integrationTestContext{
		container:    container,
		db:           db,
		server:       testServer,
		tenantID:     testTenant.ID,
		userID:       user.ID,
		clientID:     clientOutput.Client.ID,
		clientSecret: clientOutput.PlainSecret,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.container != nil {
		if err := ctx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}
}

func TestIntegration_HealthAndReadiness(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationTest(t)
	defer teardownIntegrationTest(t, ctx)

	status, body := ctx.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "healthy")

	status, body = ctx.get(t, "/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "ready")
}

func TestIntegration_ClientCredentialsGrant(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationTest(t)
	defer teardownIntegrationTest(t, ctx)

	t.Run("issues-access-token", func(t *testing.T) {
		status, payload := ctx.postForm(t, "/oauth/token", url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {ctx.clientID.String()},
			"client_secret": {ctx.clientSecret},
			"scope":         {"api:read"},
		})

		require.Equal(t, http.StatusOK, status)
		assert.NotEmpty(t, payload.AccessToken)
		assert.Equal(t, "Bearer", payload.TokenType)
		assert.Empty(t, payload.RefreshToken, "client_credentials must not issue a refresh token")
		assert.Greater(t, payload.ExpiresIn, int64(0))
	})

	t.Run("rejects-wrong-secret", func(t *testing.T) {
		status, payload := ctx.postForm(t, "/oauth/token", url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {ctx.clientID.String()},
			"client_secret": {"wrong-secret"},
		})

		require.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid_client", payload.Error)
	})
}

func TestIntegration_PasswordGrantAndRefreshRotation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationTest(t)
	defer teardownIntegrationTest(t, ctx)

	// Password grant issues an access/refresh pair.
	status, first := ctx.postForm(t, "/oauth/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {ctx.clientID.String()},
		"client_secret": {ctx.clientSecret},
		"username":      {"alice"},
		"password":      {"Correct-h0rse-battery"},
		"scope":         {"profile"},
	})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, first.AccessToken)
	require.NotEmpty(t, first.RefreshToken)

	// Wrong password yields invalid_grant without leaking which part failed.
	status, payload := ctx.postForm(t, "/oauth/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {ctx.clientID.String()},
		"client_secret": {ctx.clientSecret},
		"username":      {"alice"},
		"password":      {"wrong password"},
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_grant", payload.Error)

	// Rotating the refresh token issues a new pair.
	status, second := ctx.postForm(t, "/oauth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ctx.clientID.String()},
		"client_secret": {ctx.clientSecret},
		"refresh_token": {first.RefreshToken},
	})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, second.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Replaying the rotated token is reuse: the whole chain is revoked.
	status, payload = ctx.postForm(t, "/oauth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ctx.clientID.String()},
		"client_secret": {ctx.clientSecret},
		"refresh_token": {first.RefreshToken},
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_grant", payload.Error)

	// The descendant issued from the reused token is dead as well.
	status, payload = ctx.postForm(t, "/oauth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ctx.clientID.String()},
		"client_secret": {ctx.clientSecret},
		"refresh_token": {second.RefreshToken},
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_grant", payload.Error)
}

func TestIntegration_Revocation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationTest(t)
	defer teardownIntegrationTest(t, ctx)

	status, pair := ctx.postForm(t, "/oauth/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {ctx.clientID.String()},
		"client_secret": {ctx.clientSecret},
		"username":      {"alice"},
		"password":      {"Correct-h0rse-battery"},
	})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, pair.RefreshToken)

	// Revocation always succeeds.
	status, _ = ctx.postForm(t, "/oauth/revoke", url.Values{
		"token":     {pair.RefreshToken},
		"client_id": {ctx.clientID.String()},
	})
	require.Equal(t, http.StatusOK, status)

	// Revoking an unknown token is idempotent, not an error.
	status, _ = ctx.postForm(t, "/oauth/revoke", url.Values{
		"token":     {"unknown-token"},
		"client_id": {ctx.clientID.String()},
	})
	require.Equal(t, http.StatusOK, status)

	// The revoked token no longer refreshes.
	status, payload := ctx.postForm(t, "/oauth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ctx.clientID.String()},
		"client_secret": {ctx.clientSecret},
		"refresh_token": {pair.RefreshToken},
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_grant", payload.Error)
}

func TestIntegration_WellKnownEndpoints(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationTest(t)
	defer teardownIntegrationTest(t, ctx)

	// Issue a token first so the signing key for the scope exists.
	status, _ := ctx.postForm(t, "/oauth/token", url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ctx.clientID.String()},
		"client_secret": {ctx.clientSecret},
	})
	require.Equal(t, http.StatusOK, status)

	t.Run("jwks", func(t *testing.T) {
		status, body := ctx.get(t, "/.well-known/jwks.json", map[string]string{
			tenant.HeaderName: ctx.tenantID.String(),
		})

		require.Equal(t, http.StatusOK, status)

		var jwks struct {
			Keys []map[string]interface{} `json:"keys"`
		}
		require.NoError(t, json.Unmarshal(body, &jwks))
		require.NotEmpty(t, jwks.Keys)
		assert.Equal(t, "RSA", jwks.Keys[0]["kty"])
		assert.Equal(t, "sig", jwks.Keys[0]["use"])
		assert.NotEmpty(t, jwks.Keys[0]["kid"])
		assert.NotContains(t, string(body), "\"d\":", "JWKS must never expose private key material")
	})

	t.Run("discovery", func(t *testing.T) {
		status, body := ctx.get(t, "/.well-known/openid-configuration", nil)

		require.Equal(t, http.StatusOK, status)

		var discovery map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &discovery))
		assert.Equal(t, testIssuer, discovery["issuer"])
		assert.Equal(t, testIssuer+"/oauth/token", discovery["token_endpoint"])
		assert.Equal(t, testIssuer+"/oauth/authorize", discovery["authorization_endpoint"])
		assert.Equal(t, testIssuer+"/.well-known/jwks.json", discovery["jwks_uri"])
	})
}

func TestIntegration_TenantResolution(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationTest(t)
	defer teardownIntegrationTest(t, ctx)

	t.Run("unknown-tenant-rejected", func(t *testing.T) {
		req, err := http.NewRequest(
			http.MethodPost,
			ctx.server.URL+"/oauth/token",
			strings.NewReader(url.Values{
				"grant_type":    {"client_credentials"},
				"client_id":     {ctx.clientID.String()},
				"client_secret": {ctx.clientSecret},
			}.Encode()),
		)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(tenant.HeaderName, uuid.Must(uuid.NewV7()).String())

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing-tenant-rejected", func(t *testing.T) {
		resp, err := http.PostForm(ctx.server.URL+"/oauth/token", url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {ctx.clientID.String()},
			"client_secret": {ctx.clientSecret},
		})
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
