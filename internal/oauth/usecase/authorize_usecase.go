package usecase

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/allisson/authd/internal/config"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	oauthService "github.com/allisson/authd/internal/oauth/service"
	userDomain "github.com/allisson/authd/internal/user/domain"
	userUseCase "github.com/allisson/authd/internal/user/usecase"
)

// authorizeUseCase implements AuthorizeUseCase.
type authorizeUseCase struct {
	config       *config.Config
	clientRepo   ClientRepository
	grantRepo    GrantRepository
	codeStore    CodeStore
	userUseCase  userUseCase.UserUseCase
	tokenService oauthService.TokenService
}

// Authorize runs the authorization endpoint flow.
//
// Validation order matters: the redirect URI must be proven against the
// client registration before any error may be delivered through it, so
// unknown clients and unregistered URIs fail with ErrInvalidRequest rendered
// directly to the user agent.
//
// The principal is the caller's problem: the handler resolves it from the
// session and an absent principal surfaces as ErrAuthenticationRequired,
// which the handler turns into a login redirect instead of a protocol error.
// A principal belonging to a different tenant fails as ErrInvalidRequest.
func (a *authorizeUseCase) Authorize(
	ctx context.Context,
	input *oauthDomain.AuthorizeInput,
) (*oauthDomain.AuthorizeOutput, error) {
	client, err := a.clientRepo.Get(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, oauthDomain.ErrClientNotFound) {
			return nil, oauthDomain.ErrInvalidRequest
		}
		return nil, err
	}

	if !client.IsActive || client.TenantID != input.TenantID {
		return nil, oauthDomain.ErrInvalidRequest
	}
	if !client.AllowsRedirectURI(input.RedirectURI) {
		return nil, oauthDomain.ErrInvalidRequest
	}
	if !client.AllowsGrantType(oauthDomain.GrantTypeAuthorizationCode) {
		return nil, oauthDomain.ErrUnauthorizedClient
	}

	if err := validatePKCEParams(client, input); err != nil {
		return nil, err
	}
	if err := validateResources(input.Resources); err != nil {
		return nil, err
	}

	user, err := a.userUseCase.Get(ctx, input.SubjectID)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			return nil, oauthDomain.ErrAuthenticationRequired
		}
		return nil, err
	}
	// A principal from another tenant is a protocol error, not a missing
	// login: re-authenticating would not make the request valid.
	if user.TenantID != input.TenantID {
		return nil, oauthDomain.ErrInvalidRequest
	}

	grant, err := a.resolveGrant(ctx, input)
	if err != nil {
		return nil, err
	}

	code, _, err := a.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	record := &oauthDomain.AuthorizationCode{
		SubjectID:           input.SubjectID,
		ClientID:            input.ClientID,
		TenantID:            input.TenantID,
		GrantID:             grant.ID,
		Scopes:              input.Scopes,
		Resources:           input.Resources,
		RedirectURI:         input.RedirectURI,
		CodeChallenge:       input.CodeChallenge,
		CodeChallengeMethod: input.CodeChallengeMethod,
		CreatedAt:           time.Now().UTC(),
	}
	if err := a.codeStore.Save(ctx, code, record, a.config.AuthorizationCodeExpiration); err != nil {
		return nil, err
	}

	return &oauthDomain.AuthorizeOutput{
		Code:        code,
		State:       input.State,
		RedirectURI: input.RedirectURI,
	}, nil
}

// resolveGrant reuses the valid permanent grant between the subject and the
// client when it covers the requested scopes, otherwise records a new one.
func (a *authorizeUseCase) resolveGrant(
	ctx context.Context,
	input *oauthDomain.AuthorizeInput,
) (*oauthDomain.Grant, error) {
	grant, err := a.grantRepo.GetPermanent(ctx, input.TenantID, input.SubjectID, input.ClientID)
	if err == nil && coversScopes(grant.Scopes, input.Scopes) {
		return grant, nil
	}
	if err != nil && !errors.Is(err, oauthDomain.ErrGrantNotFound) {
		return nil, err
	}

	grant = oauthDomain.NewGrant(
		input.TenantID,
		&input.SubjectID,
		input.ClientID,
		oauthDomain.GrantKindPermanent,
		input.Scopes,
	)
	if err := a.grantRepo.Create(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// validatePKCEParams checks the challenge parameters. Public clients must
// send a challenge; only the S256 method is accepted.
func validatePKCEParams(client *oauthDomain.Client, input *oauthDomain.AuthorizeInput) error {
	if input.CodeChallenge == "" {
		if !client.IsConfidential {
			return oauthDomain.ErrInvalidRequest
		}
		return nil
	}
	if input.CodeChallengeMethod != oauthDomain.CodeChallengeMethodS256 {
		return oauthDomain.ErrInvalidRequest
	}
	return nil
}

// validateResources checks the resource indicators: each must be an absolute
// URI without a fragment, per RFC 8707.
func validateResources(resources []string) error {
	for _, resource := range resources {
		parsed, err := url.Parse(resource)
		if err != nil || !parsed.IsAbs() || parsed.Fragment != "" {
			return oauthDomain.ErrInvalidRequest
		}
	}
	return nil
}

// coversScopes reports whether every requested scope is in the granted set.
func coversScopes(granted, requested []string) bool {
	for _, scope := range requested {
		if !oauthDomain.HasScope(granted, scope) {
			return false
		}
	}
	return true
}

// NewAuthorizeUseCase creates a new AuthorizeUseCase with the provided dependencies.
func NewAuthorizeUseCase(
	cfg *config.Config,
	clientRepo ClientRepository,
	grantRepo GrantRepository,
	codeStore CodeStore,
	userUC userUseCase.UserUseCase,
	tokenService oauthService.TokenService,
) AuthorizeUseCase {
	return &authorizeUseCase{
		config:       cfg,
		clientRepo:   clientRepo,
		grantRepo:    grantRepo,
		codeStore:    codeStore,
		userUseCase:  userUC,
		tokenService: tokenService,
	}
}
