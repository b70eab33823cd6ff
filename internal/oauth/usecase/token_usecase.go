package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/config"
	"github.com/allisson/authd/internal/database"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	oauthService "github.com/allisson/authd/internal/oauth/service"
	userDomain "github.com/allisson/authd/internal/user/domain"
	userUseCase "github.com/allisson/authd/internal/user/usecase"
)

// tokenUseCase implements TokenUseCase. It holds the state machines of the
// four grant types, the rotation transaction, and the revocation paths.
type tokenUseCase struct {
	config           *config.Config
	clientRepo       ClientRepository
	grantRepo        GrantRepository
	refreshTokenRepo RefreshTokenRepository
	codeStore        CodeStore
	markerStore      MarkerStore
	txManager        database.TxManager
	userUseCase      userUseCase.UserUseCase
	secretService    oauthService.SecretService
	tokenService     oauthService.TokenService
	tokenSigner      oauthService.TokenSigner
}

// Token dispatches the request to the grant type's flow.
func (t *tokenUseCase) Token(
	ctx context.Context,
	input *oauthDomain.TokenInput,
) (*oauthDomain.TokenOutput, error) {
	switch input.GrantType {
	case oauthDomain.GrantTypeAuthorizationCode:
		return t.authorizationCodeGrant(ctx, input)
	case oauthDomain.GrantTypeRefreshToken:
		return t.refreshTokenGrant(ctx, input)
	case oauthDomain.GrantTypeClientCredentials:
		return t.clientCredentialsGrant(ctx, input)
	case oauthDomain.GrantTypePassword:
		return t.passwordGrant(ctx, input)
	default:
		return nil, oauthDomain.ErrUnsupportedGrantType
	}
}

// authorizationCodeGrant exchanges a single-use authorization code for tokens.
//
// The consume is atomic: the store removes the record in the same operation
// that returns it, so concurrent exchanges admit exactly one winner. The
// winner leaves a tombstone behind; consuming a tombstone proves the code was
// redeemed twice and revokes the whole grant and every refresh token
// descended from it.
func (t *tokenUseCase) authorizationCodeGrant(
	ctx context.Context,
	input *oauthDomain.TokenInput,
) (*oauthDomain.TokenOutput, error) {
	if input.Code == "" {
		return nil, oauthDomain.ErrInvalidRequest
	}

	record, err := t.codeStore.Consume(ctx, input.Code)
	if err != nil {
		if errors.Is(err, oauthDomain.ErrCodeNotFound) {
			return nil, oauthDomain.ErrInvalidGrant
		}
		return nil, err
	}

	if record.ConsumedAt != nil {
		return nil, t.revokeReplayedGrant(ctx, record.GrantID)
	}

	// Leave the tombstone before doing anything else: a replay arriving
	// while this exchange is still running must be detectable.
	tombstone := record.Tombstone(time.Now().UTC())
	if err := t.codeStore.Save(ctx, input.Code, tombstone, t.config.AuthorizationCodeExpiration); err != nil {
		return nil, err
	}

	client, err := t.authenticateClient(ctx, input, oauthDomain.GrantTypeAuthorizationCode)
	if err != nil {
		return nil, err
	}

	if client.ID != record.ClientID || client.TenantID != record.TenantID {
		return nil, oauthDomain.ErrInvalidGrant
	}
	if input.RedirectURI != record.RedirectURI {
		return nil, oauthDomain.ErrInvalidGrant
	}

	if record.RequiresPKCE() {
		if input.CodeVerifier == "" {
			return nil, oauthDomain.ErrInvalidRequest
		}
		if !record.VerifyPKCE(input.CodeVerifier) {
			return nil, oauthDomain.ErrInvalidGrant
		}
	}

	grant, err := t.grantRepo.Get(ctx, record.GrantID)
	if err != nil {
		if errors.Is(err, oauthDomain.ErrGrantNotFound) {
			return nil, oauthDomain.ErrInvalidGrant
		}
		return nil, err
	}
	if !grant.IsValid() {
		return nil, oauthDomain.ErrInvalidGrant
	}

	user, err := t.userUseCase.Get(ctx, record.SubjectID)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			return nil, oauthDomain.ErrInvalidGrant
		}
		return nil, err
	}

	return t.mintTokens(ctx, mintInput{
		tenantID:    record.TenantID,
		grantID:     record.GrantID,
		clientID:    record.ClientID,
		subject:     record.SubjectID.String(),
		userID:      &record.SubjectID,
		username:    user.Username,
		email:       user.Email,
		scopes:      record.Scopes,
		resources:   record.Resources,
		withRefresh: true,
	})
}

// refreshTokenGrant rotates a refresh token and mints a fresh token pair.
//
// The revocation marker is checked before the SQL record is trusted: a marker
// hit is authoritative even when the row itself has been garbage collected.
// Redeeming an already rotated token revokes every surviving descendant of
// its chain.
func (t *tokenUseCase) refreshTokenGrant(
	ctx context.Context,
	input *oauthDomain.TokenInput,
) (*oauthDomain.TokenOutput, error) {
	if input.RefreshToken == "" {
		return nil, oauthDomain.ErrInvalidRequest
	}

	client, err := t.authenticateClient(ctx, input, oauthDomain.GrantTypeRefreshToken)
	if err != nil {
		return nil, err
	}

	tokenHash := t.tokenService.HashToken(input.RefreshToken)
	token, err := t.refreshTokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, oauthDomain.ErrRefreshTokenNotFound) {
			return nil, oauthDomain.ErrInvalidGrant
		}
		return nil, err
	}

	revoked, err := t.markerStore.IsRevoked(ctx, token.ID)
	if err != nil {
		return nil, err
	}
	if revoked || token.RevokedAt != nil {
		return nil, t.revokeReusedChain(ctx, token)
	}

	if token.TenantID != input.TenantID || token.ClientID != client.ID {
		return nil, oauthDomain.ErrInvalidGrant
	}
	if !token.IsLive(time.Now().UTC()) {
		return nil, oauthDomain.ErrInvalidGrant
	}

	scopes, err := narrowScopes(token.Scopes, input.Scopes)
	if err != nil {
		return nil, err
	}

	plainToken, newHash, err := t.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}
	successor := token.Successor(newHash, t.config.RefreshTokenExpiration)
	successor.Scopes = scopes

	// Revoke-old plus create-new in one transaction: a cancellation between
	// the two must not leave the chain with zero or two live rows.
	err = t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := t.refreshTokenRepo.Revoke(txCtx, token.ID, time.Now().UTC()); err != nil {
			return err
		}
		return t.refreshTokenRepo.Create(txCtx, successor)
	})
	if err != nil {
		return nil, err
	}

	if err := t.markerStore.MarkRevoked(ctx, token.ID, t.markerTTL()); err != nil {
		// The SQL row is already revoked; the marker only covers the
		// post-GC window.
		slog.Error("failed to write revocation marker", "token_id", token.ID, "error", err)
	}

	var username, email string
	if token.UserID != nil {
		if user, err := t.userUseCase.Get(ctx, *token.UserID); err == nil {
			username = user.Username
			email = user.Email
		}
	}

	output, err := t.mintTokens(ctx, mintInput{
		tenantID:    token.TenantID,
		grantID:     token.GrantID,
		clientID:    token.ClientID,
		subject:     refreshSubject(token),
		userID:      token.UserID,
		username:    username,
		email:       email,
		scopes:      scopes,
		withRefresh: false,
	})
	if err != nil {
		return nil, err
	}
	output.RefreshToken = plainToken
	return output, nil
}

// clientCredentialsGrant issues an access token for the client itself.
// No subject, no ID token, no refresh token.
func (t *tokenUseCase) clientCredentialsGrant(
	ctx context.Context,
	input *oauthDomain.TokenInput,
) (*oauthDomain.TokenOutput, error) {
	client, err := t.authenticateClient(ctx, input, oauthDomain.GrantTypeClientCredentials)
	if err != nil {
		return nil, err
	}
	if !client.IsConfidential {
		return nil, oauthDomain.ErrUnauthorizedClient
	}

	grant := oauthDomain.NewGrant(client.TenantID, nil, client.ID, oauthDomain.GrantKindAdhoc, input.Scopes)
	if err := t.grantRepo.Create(ctx, grant); err != nil {
		return nil, err
	}

	return t.mintTokens(ctx, mintInput{
		tenantID:    client.TenantID,
		grantID:     grant.ID,
		clientID:    client.ID,
		subject:     client.ID.String(),
		scopes:      input.Scopes,
		withRefresh: false,
	})
}

// passwordGrant verifies the resource owner's credentials within the resolved
// tenant and issues tokens as the authorization code flow does.
func (t *tokenUseCase) passwordGrant(
	ctx context.Context,
	input *oauthDomain.TokenInput,
) (*oauthDomain.TokenOutput, error) {
	if input.Username == "" || input.Password == "" {
		return nil, oauthDomain.ErrInvalidRequest
	}

	client, err := t.authenticateClient(ctx, input, oauthDomain.GrantTypePassword)
	if err != nil {
		return nil, err
	}

	user, err := t.userUseCase.VerifyCredentials(ctx, input.TenantID, input.Username, input.Password)
	if err != nil {
		if errors.Is(err, userDomain.ErrInvalidCredentials) {
			return nil, oauthDomain.ErrInvalidGrant
		}
		return nil, err
	}

	grant := oauthDomain.NewGrant(input.TenantID, &user.ID, client.ID, oauthDomain.GrantKindAdhoc, input.Scopes)
	if err := t.grantRepo.Create(ctx, grant); err != nil {
		return nil, err
	}

	return t.mintTokens(ctx, mintInput{
		tenantID:    input.TenantID,
		grantID:     grant.ID,
		clientID:    client.ID,
		subject:     user.ID.String(),
		userID:      &user.ID,
		username:    user.Username,
		email:       user.Email,
		scopes:      input.Scopes,
		withRefresh: true,
	})
}

// Revoke implements RFC 7009 revocation. Unknown or foreign tokens are not an
// error: the endpoint always reports success so callers cannot probe for
// token existence.
func (t *tokenUseCase) Revoke(ctx context.Context, input *oauthDomain.RevokeInput) error {
	if input.Token == "" {
		return nil
	}

	tokenHash := t.tokenService.HashToken(input.Token)
	token, err := t.refreshTokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, oauthDomain.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}

	if token.ClientID != input.ClientID {
		return nil
	}
	if token.RevokedAt != nil {
		return nil
	}

	if err := t.refreshTokenRepo.Revoke(ctx, token.ID, time.Now().UTC()); err != nil {
		return err
	}
	if err := t.markerStore.MarkRevoked(ctx, token.ID, t.markerTTL()); err != nil {
		slog.Error("failed to write revocation marker", "token_id", token.ID, "error", err)
	}
	return nil
}

// Logout revokes every live refresh token of the user within the tenant and
// writes a marker for each affected record.
//
// The revoke statement runs in a loop until it finds nothing live: a rotation
// committing between two passes leaves a fresh successor the earlier pass
// could not see, and the next pass catches it. The loop terminates because
// every successor needs a live predecessor, which the pass that saw it
// revoked.
func (t *tokenUseCase) Logout(ctx context.Context, tenantID, userID uuid.UUID) error {
	total := 0
	for {
		ids, err := t.refreshTokenRepo.RevokeAllForUser(ctx, tenantID, userID, time.Now().UTC())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if err := t.markerStore.MarkRevoked(ctx, id, t.markerTTL()); err != nil {
				return err
			}
		}
		total += len(ids)
	}

	slog.Info("user logged out", "tenant_id", tenantID, "user_id", userID, "revoked_tokens", total)
	return nil
}

// authenticateClient loads the client and checks activity, tenant, grant type
// registration, and the secret for confidential clients.
func (t *tokenUseCase) authenticateClient(
	ctx context.Context,
	input *oauthDomain.TokenInput,
	grantType string,
) (*oauthDomain.Client, error) {
	client, err := t.clientRepo.Get(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, oauthDomain.ErrClientNotFound) {
			return nil, oauthDomain.ErrInvalidClient
		}
		return nil, err
	}

	if !client.IsActive || client.TenantID != input.TenantID {
		return nil, oauthDomain.ErrInvalidClient
	}
	if !client.AllowsGrantType(grantType) {
		return nil, oauthDomain.ErrUnauthorizedClient
	}
	if client.IsConfidential && !t.secretService.CompareSecret(input.ClientSecret, client.SecretHash) {
		return nil, oauthDomain.ErrInvalidClient
	}
	return client, nil
}

// mintInput collects everything a token response is built from.
type mintInput struct {
	tenantID    uuid.UUID
	grantID     uuid.UUID
	clientID    uuid.UUID
	subject     string
	userID      *uuid.UUID
	username    string
	email       string
	scopes      []string
	resources   []string
	withRefresh bool
}

// mintTokens signs the access token (and the ID token when the openid scope
// was granted) and optionally starts a new refresh token chain.
func (t *tokenUseCase) mintTokens(ctx context.Context, input mintInput) (*oauthDomain.TokenOutput, error) {
	accessClaims, idClaims := oauthDomain.BuildClaims(oauthDomain.ClaimsInput{
		Issuer:         t.config.Issuer,
		Subject:        input.subject,
		Audience:       input.clientID.String(),
		TenantID:       input.tenantID,
		Scopes:         input.scopes,
		Resources:      input.resources,
		Username:       input.username,
		Email:          input.email,
		AccessTokenTTL: t.config.AccessTokenExpiration,
	})

	accessToken, err := t.tokenSigner.Sign(ctx, input.tenantID, accessClaims)
	if err != nil {
		return nil, err
	}

	var idToken string
	if idClaims != nil {
		idToken, err = t.tokenSigner.Sign(ctx, input.tenantID, idClaims)
		if err != nil {
			return nil, err
		}
	}

	output := &oauthDomain.TokenOutput{
		AccessToken: accessToken,
		TokenType:   oauthDomain.TokenTypeBearer,
		ExpiresIn:   int64(t.config.AccessTokenExpiration.Seconds()),
		IDToken:     idToken,
		Scope:       oauthDomain.JoinScopes(input.scopes),
	}

	if input.withRefresh {
		plainToken, tokenHash, err := t.tokenService.GenerateToken()
		if err != nil {
			return nil, err
		}
		refreshToken := oauthDomain.NewRefreshToken(
			tokenHash,
			input.tenantID,
			input.grantID,
			input.userID,
			input.clientID,
			input.scopes,
			t.config.RefreshTokenExpiration,
		)
		if err := t.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
			return nil, err
		}
		output.RefreshToken = plainToken
	}

	return output, nil
}

// revokeReplayedGrant tears down a grant whose authorization code was
// redeemed twice: the grant itself plus every refresh token descended from it.
func (t *tokenUseCase) revokeReplayedGrant(ctx context.Context, grantID uuid.UUID) error {
	slog.Warn("authorization code replay detected", "grant_id", grantID)

	if err := t.grantRepo.UpdateStatus(ctx, grantID, oauthDomain.GrantStatusRevoked); err != nil {
		return err
	}

	ids, err := t.refreshTokenRepo.RevokeByGrant(ctx, grantID, time.Now().UTC())
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := t.markerStore.MarkRevoked(ctx, id, t.markerTTL()); err != nil {
			return err
		}
	}

	return oauthDomain.ErrInvalidGrant
}

// revokeReusedChain tears down the surviving descendants of a chain whose
// rotated token was presented again.
func (t *tokenUseCase) revokeReusedChain(ctx context.Context, token *oauthDomain.RefreshToken) error {
	slog.Warn("refresh token reuse detected", "token_id", token.ID, "chain_id", token.ChainID)

	ids, err := t.refreshTokenRepo.RevokeByChain(ctx, token.ChainID, time.Now().UTC())
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := t.markerStore.MarkRevoked(ctx, id, t.markerTTL()); err != nil {
			return err
		}
	}

	return oauthDomain.ErrInvalidGrant
}

// markerTTL is how long a revocation marker lives: the refresh token lifetime
// plus the retention window, so the marker strictly outlives the SQL row.
func (t *tokenUseCase) markerTTL() time.Duration {
	return t.config.RefreshTokenExpiration + t.config.RefreshTokenRetention
}

// narrowScopes resolves the scopes of a rotated token: the requested set must
// be a subset of the granted set, and an empty request keeps the granted set.
func narrowScopes(granted, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return granted, nil
	}
	for _, scope := range requested {
		if !oauthDomain.HasScope(granted, scope) {
			return nil, oauthDomain.ErrInvalidScope
		}
	}
	return requested, nil
}

// refreshSubject is the sub claim of tokens minted from a refresh token:
// the user when one exists, the client for client-only chains.
func refreshSubject(token *oauthDomain.RefreshToken) string {
	if token.UserID != nil {
		return token.UserID.String()
	}
	return token.ClientID.String()
}

// NewTokenUseCase creates a new TokenUseCase with the provided dependencies.
func NewTokenUseCase(
	cfg *config.Config,
	clientRepo ClientRepository,
	grantRepo GrantRepository,
	refreshTokenRepo RefreshTokenRepository,
	codeStore CodeStore,
	markerStore MarkerStore,
	txManager database.TxManager,
	userUC userUseCase.UserUseCase,
	secretService oauthService.SecretService,
	tokenService oauthService.TokenService,
	tokenSigner oauthService.TokenSigner,
) TokenUseCase {
	return &tokenUseCase{
		config:           cfg,
		clientRepo:       clientRepo,
		grantRepo:        grantRepo,
		refreshTokenRepo: refreshTokenRepo,
		codeStore:        codeStore,
		markerStore:      markerStore,
		txManager:        txManager,
		userUseCase:      userUC,
		secretService:    secretService,
		tokenService:     tokenService,
		tokenSigner:      tokenSigner,
	}
}
