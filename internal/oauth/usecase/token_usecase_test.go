package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authd/internal/config"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	oauthRepository "github.com/allisson/authd/internal/oauth/repository"
	oauthService "github.com/allisson/authd/internal/oauth/service"
	userDomain "github.com/allisson/authd/internal/user/domain"
)

type tokenFixture struct {
	cfg         *config.Config
	clientRepo  *MockClientRepository
	grantRepo   *MockGrantRepository
	refreshRepo *MockRefreshTokenRepository
	codeStore   *oauthRepository.RedisCodeStore
	markerStore *oauthRepository.RedisMarkerStore
	userUC      *MockUserUseCase
	secrets     *MockSecretService
	tokens      oauthService.TokenService
	signer      *stubSigner
	useCase     TokenUseCase
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	f := &tokenFixture{
		cfg: &config.Config{
			Issuer:                      "https://auth.example.com",
			AccessTokenExpiration:       15 * time.Minute,
			RefreshTokenExpiration:      720 * time.Hour,
			RefreshTokenRetention:       168 * time.Hour,
			AuthorizationCodeExpiration: 5 * time.Minute,
		},
		clientRepo:  new(MockClientRepository),
		grantRepo:   new(MockGrantRepository),
		refreshRepo: new(MockRefreshTokenRepository),
		codeStore:   oauthRepository.NewRedisCodeStore(client),
		markerStore: oauthRepository.NewRedisMarkerStore(client),
		userUC:      new(MockUserUseCase),
		secrets:     new(MockSecretService),
		tokens:      oauthService.NewTokenService(),
		signer:      &stubSigner{},
	}
	f.useCase = NewTokenUseCase(
		f.cfg,
		f.clientRepo,
		f.grantRepo,
		f.refreshRepo,
		f.codeStore,
		f.markerStore,
		&MockTxManager{},
		f.userUC,
		f.secrets,
		f.tokens,
		f.signer,
	)
	return f
}

func newTestClient(tenantID uuid.UUID, confidential bool, grantTypes ...string) *oauthDomain.Client {
	return &oauthDomain.Client{
		ID:             uuid.Must(uuid.NewV7()),
		TenantID:       tenantID,
		Name:           "test-client",
		SecretHash:     "hashed-secret",
		RedirectURIs:   []string{"https://app.example.com/callback"},
		GrantTypes:     grantTypes,
		IsConfidential: confidential,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestTokenUseCase_ClientCredentials(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	t.Run("IssuesAccessTokenOnly", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeClientCredentials)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)

		var createdGrant *oauthDomain.Grant
		f.grantRepo.On("Create", ctx, mock.AnythingOfType("*domain.Grant")).
			Run(func(args mock.Arguments) {
				createdGrant = args.Get(1).(*oauthDomain.Grant)
			}).
			Return(nil)

		output, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeClientCredentials,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Scopes:       []string{"api.read"},
		})
		require.NoError(t, err)

		assert.NotEmpty(t, output.AccessToken)
		assert.Equal(t, oauthDomain.TokenTypeBearer, output.TokenType)
		assert.Equal(t, int64(900), output.ExpiresIn)
		assert.Empty(t, output.RefreshToken)
		assert.Empty(t, output.IDToken)
		assert.Equal(t, "api.read", output.Scope)

		require.NotNil(t, createdGrant)
		assert.Equal(t, oauthDomain.GrantKindAdhoc, createdGrant.Kind)
		assert.Nil(t, createdGrant.SubjectID)

		claims := f.signer.lastClaims()
		assert.Equal(t, client.ID.String(), claims["sub"])
		assert.Equal(t, tenantID.String(), claims["tid"])
		assert.Equal(t, "api.read", claims["scope"])

		f.clientRepo.AssertExpectations(t)
		f.grantRepo.AssertExpectations(t)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeClientCredentials)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "wrong", client.SecretHash).Return(false)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeClientCredentials,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "wrong",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidClient)
	})

	t.Run("PublicClientRejected", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, false, oauthDomain.GrantTypeClientCredentials)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType: oauthDomain.GrantTypeClientCredentials,
			TenantID:  tenantID,
			ClientID:  client.ID,
		})
		assert.ErrorIs(t, err, oauthDomain.ErrUnauthorizedClient)
	})

	t.Run("CrossTenantClient", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(uuid.Must(uuid.NewV7()), true, oauthDomain.GrantTypeClientCredentials)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeClientCredentials,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidClient)
	})

	t.Run("GrantTypeNotRegistered", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeClientCredentials,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrUnauthorizedClient)
	})

	t.Run("UnknownClient", func(t *testing.T) {
		f := newTokenFixture(t)
		clientID := uuid.Must(uuid.NewV7())

		f.clientRepo.On("Get", ctx, clientID).Return(nil, oauthDomain.ErrClientNotFound)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType: oauthDomain.GrantTypeClientCredentials,
			TenantID:  tenantID,
			ClientID:  clientID,
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidClient)
	})
}

func TestTokenUseCase_UnsupportedGrantType(t *testing.T) {
	f := newTokenFixture(t)

	_, err := f.useCase.Token(context.Background(), &oauthDomain.TokenInput{GrantType: "implicit"})
	assert.ErrorIs(t, err, oauthDomain.ErrUnsupportedGrantType)
}

func TestTokenUseCase_Password(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	t.Run("IssuesFullTokenSet", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypePassword)
		user := &userDomain.User{
			ID:       uuid.Must(uuid.NewV7()),
			Username: "alice",
			TenantID: tenantID,
		}

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.userUC.On("VerifyCredentials", ctx, tenantID, "alice", "password").Return(user, nil)
		f.grantRepo.On("Create", ctx, mock.AnythingOfType("*domain.Grant")).Return(nil)

		var createdToken *oauthDomain.RefreshToken
		f.refreshRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).
			Run(func(args mock.Arguments) {
				createdToken = args.Get(1).(*oauthDomain.RefreshToken)
			}).
			Return(nil)

		output, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypePassword,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Username:     "alice",
			Password:     "password",
			Scopes:       []string{"openid", "profile"},
		})
		require.NoError(t, err)

		assert.NotEmpty(t, output.AccessToken)
		assert.NotEmpty(t, output.IDToken)
		assert.NotEmpty(t, output.RefreshToken)

		// New chain: the record is its own head.
		require.NotNil(t, createdToken)
		assert.Equal(t, createdToken.ID, createdToken.ChainID)
		assert.Equal(t, 0, createdToken.RotationCount)
		assert.Equal(t, &user.ID, createdToken.UserID)
		assert.Equal(t, f.tokens.HashToken(output.RefreshToken), createdToken.TokenHash)

		// ID token carries the profile claims.
		idClaims := f.signer.lastClaims()
		assert.Equal(t, "alice", idClaims["preferred_username"])
		assert.Equal(t, user.ID.String(), idClaims["sub"])
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypePassword)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.userUC.On("VerifyCredentials", ctx, tenantID, "alice", "wrong").
			Return(nil, userDomain.ErrInvalidCredentials)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypePassword,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Username:     "alice",
			Password:     "wrong",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		f := newTokenFixture(t)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType: oauthDomain.GrantTypePassword,
			TenantID:  tenantID,
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidRequest)
	})
}

func TestTokenUseCase_AuthorizationCode(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	setupCode := func(
		t *testing.T,
		f *tokenFixture,
		client *oauthDomain.Client,
		grant *oauthDomain.Grant,
		user *userDomain.User,
	) string {
		t.Helper()
		code, _, err := f.tokens.GenerateToken()
		require.NoError(t, err)
		record := &oauthDomain.AuthorizationCode{
			SubjectID:           user.ID,
			ClientID:            client.ID,
			TenantID:            tenantID,
			GrantID:             grant.ID,
			Scopes:              []string{"openid", "profile"},
			RedirectURI:         client.RedirectURIs[0],
			CodeChallenge:       pkceChallenge(verifier),
			CodeChallengeMethod: oauthDomain.CodeChallengeMethodS256,
			CreatedAt:           time.Now().UTC(),
		}
		require.NoError(t, f.codeStore.Save(ctx, code, record, time.Minute))
		return code
	}

	t.Run("ExchangesCodeForTokens", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		grant := oauthDomain.NewGrant(tenantID, &user.ID, client.ID,
			oauthDomain.GrantKindPermanent, []string{"openid", "profile"})
		code := setupCode(t, f, client, grant, user)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.grantRepo.On("Get", ctx, grant.ID).Return(grant, nil)
		f.userUC.On("Get", ctx, user.ID).Return(user, nil)

		var createdToken *oauthDomain.RefreshToken
		f.refreshRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).
			Run(func(args mock.Arguments) {
				createdToken = args.Get(1).(*oauthDomain.RefreshToken)
			}).
			Return(nil)

		output, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeAuthorizationCode,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Code:         code,
			RedirectURI:  client.RedirectURIs[0],
			CodeVerifier: verifier,
		})
		require.NoError(t, err)

		assert.NotEmpty(t, output.AccessToken)
		assert.NotEmpty(t, output.IDToken)
		assert.NotEmpty(t, output.RefreshToken)
		require.NotNil(t, createdToken)
		assert.Equal(t, 0, createdToken.RotationCount)
		assert.Equal(t, grant.ID, createdToken.GrantID)
	})

	t.Run("BoundResourcesBecomeAccessAudience", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)
		user := &userDomain.User{
			ID:       uuid.Must(uuid.NewV7()),
			Username: "alice",
			Email:    "alice@example.com",
			TenantID: tenantID,
		}
		grant := oauthDomain.NewGrant(tenantID, &user.ID, client.ID,
			oauthDomain.GrantKindPermanent, []string{"openid", "email"})

		code, _, err := f.tokens.GenerateToken()
		require.NoError(t, err)
		record := &oauthDomain.AuthorizationCode{
			SubjectID:           user.ID,
			ClientID:            client.ID,
			TenantID:            tenantID,
			GrantID:             grant.ID,
			Scopes:              []string{"openid", "email"},
			Resources:           []string{"https://api.example.com"},
			RedirectURI:         client.RedirectURIs[0],
			CodeChallenge:       pkceChallenge(verifier),
			CodeChallengeMethod: oauthDomain.CodeChallengeMethodS256,
			CreatedAt:           time.Now().UTC(),
		}
		require.NoError(t, f.codeStore.Save(ctx, code, record, time.Minute))

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.grantRepo.On("Get", ctx, grant.ID).Return(grant, nil)
		f.userUC.On("Get", ctx, user.ID).Return(user, nil)
		f.refreshRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

		_, err = f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeAuthorizationCode,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Code:         code,
			RedirectURI:  client.RedirectURIs[0],
			CodeVerifier: verifier,
		})
		require.NoError(t, err)

		// Access token is signed first, ID token second.
		require.Len(t, f.signer.signed, 2)
		accessClaims := f.signer.signed[0]
		idClaims := f.signer.signed[1]

		assert.Equal(t, "https://api.example.com", accessClaims["aud"])
		assert.Equal(t, client.ID.String(), idClaims["aud"])
		assert.Equal(t, "alice@example.com", idClaims["email"])
	})

	t.Run("ReplayRevokesGrantAndChains", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		grant := oauthDomain.NewGrant(tenantID, &user.ID, client.ID,
			oauthDomain.GrantKindPermanent, []string{"openid"})
		code := setupCode(t, f, client, grant, user)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.grantRepo.On("Get", ctx, grant.ID).Return(grant, nil)
		f.userUC.On("Get", ctx, user.ID).Return(user, nil)
		f.refreshRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

		input := &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeAuthorizationCode,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Code:         code,
			RedirectURI:  client.RedirectURIs[0],
			CodeVerifier: verifier,
		}

		_, err := f.useCase.Token(ctx, input)
		require.NoError(t, err)

		// Second redemption hits the tombstone and tears the grant down.
		revokedID := uuid.Must(uuid.NewV7())
		f.grantRepo.On("UpdateStatus", ctx, grant.ID, oauthDomain.GrantStatusRevoked).Return(nil)
		f.refreshRepo.On("RevokeByGrant", ctx, grant.ID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{revokedID}, nil)

		_, err = f.useCase.Token(ctx, input)
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
		f.grantRepo.AssertCalled(t, "UpdateStatus", ctx, grant.ID, oauthDomain.GrantStatusRevoked)

		revoked, err := f.markerStore.IsRevoked(ctx, revokedID)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("WrongVerifier", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		grant := oauthDomain.NewGrant(tenantID, &user.ID, client.ID,
			oauthDomain.GrantKindPermanent, []string{"openid"})
		code := setupCode(t, f, client, grant, user)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeAuthorizationCode,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Code:         code,
			RedirectURI:  client.RedirectURIs[0],
			CodeVerifier: "not-the-right-verifier-at-all-but-long-enough",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
	})

	t.Run("MissingVerifier", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		grant := oauthDomain.NewGrant(tenantID, &user.ID, client.ID,
			oauthDomain.GrantKindPermanent, []string{"openid"})
		code := setupCode(t, f, client, grant, user)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeAuthorizationCode,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Code:         code,
			RedirectURI:  client.RedirectURIs[0],
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidRequest)
	})

	t.Run("RedirectURIMismatch", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		grant := oauthDomain.NewGrant(tenantID, &user.ID, client.ID,
			oauthDomain.GrantKindPermanent, []string{"openid"})
		code := setupCode(t, f, client, grant, user)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeAuthorizationCode,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Code:         code,
			RedirectURI:  "https://evil.example.com/callback",
			CodeVerifier: verifier,
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
	})

	t.Run("UnknownCode", func(t *testing.T) {
		f := newTokenFixture(t)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:   oauthDomain.GrantTypeAuthorizationCode,
			TenantID:    tenantID,
			ClientID:    uuid.Must(uuid.NewV7()),
			Code:        "no-such-code",
			RedirectURI: "https://app.example.com/callback",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
	})

	t.Run("RevokedGrant", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		grant := oauthDomain.NewGrant(tenantID, &user.ID, client.ID,
			oauthDomain.GrantKindPermanent, []string{"openid"})
		grant.Status = oauthDomain.GrantStatusRevoked
		code := setupCode(t, f, client, grant, user)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.grantRepo.On("Get", ctx, grant.ID).Return(grant, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeAuthorizationCode,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			Code:         code,
			RedirectURI:  client.RedirectURIs[0],
			CodeVerifier: verifier,
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
	})
}

func TestTokenUseCase_RefreshToken(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	newChain := func(f *tokenFixture, userID *uuid.UUID, clientID uuid.UUID, plain string) *oauthDomain.RefreshToken {
		return oauthDomain.NewRefreshToken(
			f.tokens.HashToken(plain),
			tenantID,
			uuid.Must(uuid.NewV7()),
			userID,
			clientID,
			[]string{"openid", "profile"},
			720*time.Hour,
		)
	}

	t.Run("RotatesToken", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeRefreshToken)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		oldToken := newChain(f, &user.ID, client.ID, "old-refresh-token")

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.refreshRepo.On("GetByTokenHash", ctx, oldToken.TokenHash).Return(oldToken, nil)
		f.refreshRepo.On("Revoke", ctx, oldToken.ID, mock.AnythingOfType("time.Time")).Return(nil)
		f.userUC.On("Get", ctx, user.ID).Return(user, nil)

		var successor *oauthDomain.RefreshToken
		f.refreshRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).
			Run(func(args mock.Arguments) {
				successor = args.Get(1).(*oauthDomain.RefreshToken)
			}).
			Return(nil)

		output, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeRefreshToken,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			RefreshToken: "old-refresh-token",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, output.AccessToken)
		assert.NotEmpty(t, output.RefreshToken)
		assert.NotEqual(t, "old-refresh-token", output.RefreshToken)

		// Chain invariants hold across the hop.
		require.NotNil(t, successor)
		assert.Equal(t, oldToken.ChainID, successor.ChainID)
		assert.Equal(t, oldToken.RotationCount+1, successor.RotationCount)
		require.NotNil(t, successor.PreviousTokenID)
		assert.Equal(t, oldToken.ID, *successor.PreviousTokenID)
		assert.Equal(t, f.tokens.HashToken(output.RefreshToken), successor.TokenHash)

		// The rotated record now carries a marker.
		revoked, err := f.markerStore.IsRevoked(ctx, oldToken.ID)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("MarkerIsAuthoritative", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeRefreshToken)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		oldToken := newChain(f, &user.ID, client.ID, "marked-token")

		// The SQL row still looks live; only the marker says otherwise.
		require.NoError(t, f.markerStore.MarkRevoked(ctx, oldToken.ID, time.Hour))

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.refreshRepo.On("GetByTokenHash", ctx, oldToken.TokenHash).Return(oldToken, nil)
		f.refreshRepo.On("RevokeByChain", ctx, oldToken.ChainID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{}, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeRefreshToken,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			RefreshToken: "marked-token",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
		f.refreshRepo.AssertCalled(t, "RevokeByChain", ctx, oldToken.ChainID, mock.AnythingOfType("time.Time"))
	})

	t.Run("ReuseOfRotatedTokenRevokesChain", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeRefreshToken)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		oldToken := newChain(f, &user.ID, client.ID, "rotated-token")
		revokedAt := time.Now().UTC().Add(-time.Hour)
		oldToken.RevokedAt = &revokedAt

		survivorID := uuid.Must(uuid.NewV7())
		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.refreshRepo.On("GetByTokenHash", ctx, oldToken.TokenHash).Return(oldToken, nil)
		f.refreshRepo.On("RevokeByChain", ctx, oldToken.ChainID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{survivorID}, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeRefreshToken,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			RefreshToken: "rotated-token",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)

		revoked, err := f.markerStore.IsRevoked(ctx, survivorID)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeRefreshToken)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		oldToken := newChain(f, &user.ID, client.ID, "expired-token")
		oldToken.ExpiresAt = time.Now().UTC().Add(-time.Hour)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.refreshRepo.On("GetByTokenHash", ctx, oldToken.TokenHash).Return(oldToken, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeRefreshToken,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			RefreshToken: "expired-token",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
		f.refreshRepo.AssertNotCalled(t, "RevokeByChain", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CrossTenantToken", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeRefreshToken)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		oldToken := newChain(f, &user.ID, client.ID, "foreign-token")
		oldToken.TenantID = uuid.Must(uuid.NewV7())

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.refreshRepo.On("GetByTokenHash", ctx, oldToken.TokenHash).Return(oldToken, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeRefreshToken,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			RefreshToken: "foreign-token",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
	})

	t.Run("ScopeNarrowing", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeRefreshToken)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		oldToken := newChain(f, &user.ID, client.ID, "narrow-token")

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.refreshRepo.On("GetByTokenHash", ctx, oldToken.TokenHash).Return(oldToken, nil)
		f.refreshRepo.On("Revoke", ctx, oldToken.ID, mock.AnythingOfType("time.Time")).Return(nil)
		f.userUC.On("Get", ctx, user.ID).Return(user, nil)

		var successor *oauthDomain.RefreshToken
		f.refreshRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).
			Run(func(args mock.Arguments) {
				successor = args.Get(1).(*oauthDomain.RefreshToken)
			}).
			Return(nil)

		output, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeRefreshToken,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			RefreshToken: "narrow-token",
			Scopes:       []string{"openid"},
		})
		require.NoError(t, err)
		assert.Equal(t, "openid", output.Scope)
		require.NotNil(t, successor)
		assert.Equal(t, []string{"openid"}, successor.Scopes)
	})

	t.Run("ScopeEscalationRejected", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeRefreshToken)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Username: "alice", TenantID: tenantID}
		oldToken := newChain(f, &user.ID, client.ID, "escalate-token")

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.refreshRepo.On("GetByTokenHash", ctx, oldToken.TokenHash).Return(oldToken, nil)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeRefreshToken,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			RefreshToken: "escalate-token",
			Scopes:       []string{"openid", "admin"},
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidScope)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		f := newTokenFixture(t)
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeRefreshToken)

		f.clientRepo.On("Get", ctx, client.ID).Return(client, nil)
		f.secrets.On("CompareSecret", "client-secret", client.SecretHash).Return(true)
		f.refreshRepo.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).
			Return(nil, oauthDomain.ErrRefreshTokenNotFound)

		_, err := f.useCase.Token(ctx, &oauthDomain.TokenInput{
			GrantType:    oauthDomain.GrantTypeRefreshToken,
			TenantID:     tenantID,
			ClientID:     client.ID,
			ClientSecret: "client-secret",
			RefreshToken: "unknown-token",
		})
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidGrant)
	})
}

func TestTokenUseCase_Revoke(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	t.Run("RevokesKnownToken", func(t *testing.T) {
		f := newTokenFixture(t)
		clientID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())
		token := oauthDomain.NewRefreshToken(
			f.tokens.HashToken("revoke-me"), tenantID, uuid.Must(uuid.NewV7()),
			&userID, clientID, []string{"openid"}, time.Hour,
		)

		f.refreshRepo.On("GetByTokenHash", ctx, token.TokenHash).Return(token, nil)
		f.refreshRepo.On("Revoke", ctx, token.ID, mock.AnythingOfType("time.Time")).Return(nil)

		err := f.useCase.Revoke(ctx, &oauthDomain.RevokeInput{Token: "revoke-me", ClientID: clientID})
		require.NoError(t, err)

		revoked, err := f.markerStore.IsRevoked(ctx, token.ID)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("UnknownTokenSucceeds", func(t *testing.T) {
		f := newTokenFixture(t)

		f.refreshRepo.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).
			Return(nil, oauthDomain.ErrRefreshTokenNotFound)

		err := f.useCase.Revoke(ctx, &oauthDomain.RevokeInput{Token: "never-issued"})
		assert.NoError(t, err)
	})

	t.Run("ForeignClientTokenIgnored", func(t *testing.T) {
		f := newTokenFixture(t)
		userID := uuid.Must(uuid.NewV7())
		token := oauthDomain.NewRefreshToken(
			f.tokens.HashToken("foreign"), tenantID, uuid.Must(uuid.NewV7()),
			&userID, uuid.Must(uuid.NewV7()), []string{"openid"}, time.Hour,
		)

		f.refreshRepo.On("GetByTokenHash", ctx, token.TokenHash).Return(token, nil)

		err := f.useCase.Revoke(ctx, &oauthDomain.RevokeInput{
			Token:    "foreign",
			ClientID: uuid.Must(uuid.NewV7()),
		})
		assert.NoError(t, err)
		f.refreshRepo.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("AlreadyRevokedIsIdempotent", func(t *testing.T) {
		f := newTokenFixture(t)
		clientID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())
		token := oauthDomain.NewRefreshToken(
			f.tokens.HashToken("twice"), tenantID, uuid.Must(uuid.NewV7()),
			&userID, clientID, []string{"openid"}, time.Hour,
		)
		revokedAt := time.Now().UTC()
		token.RevokedAt = &revokedAt

		f.refreshRepo.On("GetByTokenHash", ctx, token.TokenHash).Return(token, nil)

		err := f.useCase.Revoke(ctx, &oauthDomain.RevokeInput{Token: "twice", ClientID: clientID})
		assert.NoError(t, err)
		f.refreshRepo.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTokenUseCase_Logout(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	t.Run("RevokesAllAndWritesMarkers", func(t *testing.T) {
		f := newTokenFixture(t)
		first := uuid.Must(uuid.NewV7())
		second := uuid.Must(uuid.NewV7())

		f.refreshRepo.On("RevokeAllForUser", ctx, tenantID, userID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{first, second}, nil).Once()
		f.refreshRepo.On("RevokeAllForUser", ctx, tenantID, userID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{}, nil).Once()

		require.NoError(t, f.useCase.Logout(ctx, tenantID, userID))

		for _, id := range []uuid.UUID{first, second} {
			revoked, err := f.markerStore.IsRevoked(ctx, id)
			require.NoError(t, err)
			assert.True(t, revoked)
		}
		f.refreshRepo.AssertExpectations(t)
	})

	t.Run("CatchesSuccessorFromConcurrentRotation", func(t *testing.T) {
		f := newTokenFixture(t)
		original := uuid.Must(uuid.NewV7())
		// A rotation committing after the first sweep took its snapshot
		// leaves this successor live; the sweep must go back for it.
		successor := uuid.Must(uuid.NewV7())

		f.refreshRepo.On("RevokeAllForUser", ctx, tenantID, userID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{original}, nil).Once()
		f.refreshRepo.On("RevokeAllForUser", ctx, tenantID, userID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{successor}, nil).Once()
		f.refreshRepo.On("RevokeAllForUser", ctx, tenantID, userID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{}, nil).Once()

		require.NoError(t, f.useCase.Logout(ctx, tenantID, userID))

		for _, id := range []uuid.UUID{original, successor} {
			revoked, err := f.markerStore.IsRevoked(ctx, id)
			require.NoError(t, err)
			assert.True(t, revoked)
		}
		f.refreshRepo.AssertExpectations(t)
	})

	t.Run("NoLiveTokens", func(t *testing.T) {
		f := newTokenFixture(t)

		f.refreshRepo.On("RevokeAllForUser", ctx, tenantID, userID, mock.AnythingOfType("time.Time")).
			Return([]uuid.UUID{}, nil)

		assert.NoError(t, f.useCase.Logout(ctx, tenantID, userID))
	})
}
