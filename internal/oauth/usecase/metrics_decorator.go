package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/metrics"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// tokenUseCaseWithMetrics decorates TokenUseCase with metrics instrumentation.
type tokenUseCaseWithMetrics struct {
	next    TokenUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Token records metrics for token issuance, labelled by grant type.
func (t *tokenUseCaseWithMetrics) Token(
	ctx context.Context,
	input *oauthDomain.TokenInput,
) (*oauthDomain.TokenOutput, error) {
	start := time.Now()
	output, err := t.next.Token(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	operation := "token_" + input.GrantType
	t.metrics.RecordOperation(ctx, "oauth", operation, status)
	t.metrics.RecordDuration(ctx, "oauth", operation, time.Since(start), status)

	return output, err
}

// Revoke records metrics for revocation operations.
func (t *tokenUseCaseWithMetrics) Revoke(ctx context.Context, input *oauthDomain.RevokeInput) error {
	start := time.Now()
	err := t.next.Revoke(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "oauth", "revoke", status)
	t.metrics.RecordDuration(ctx, "oauth", "revoke", time.Since(start), status)

	return err
}

// Logout records metrics for logout operations.
func (t *tokenUseCaseWithMetrics) Logout(ctx context.Context, tenantID, userID uuid.UUID) error {
	start := time.Now()
	err := t.next.Logout(ctx, tenantID, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "oauth", "logout", status)
	t.metrics.RecordDuration(ctx, "oauth", "logout", time.Since(start), status)

	return err
}

// authorizeUseCaseWithMetrics decorates AuthorizeUseCase with metrics instrumentation.
type authorizeUseCaseWithMetrics struct {
	next    AuthorizeUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthorizeUseCaseWithMetrics wraps an AuthorizeUseCase with metrics recording.
func NewAuthorizeUseCaseWithMetrics(useCase AuthorizeUseCase, m metrics.BusinessMetrics) AuthorizeUseCase {
	return &authorizeUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Authorize records metrics for authorization requests.
func (a *authorizeUseCaseWithMetrics) Authorize(
	ctx context.Context,
	input *oauthDomain.AuthorizeInput,
) (*oauthDomain.AuthorizeOutput, error) {
	start := time.Now()
	output, err := a.next.Authorize(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "oauth", "authorize", status)
	a.metrics.RecordDuration(ctx, "oauth", "authorize", time.Since(start), status)

	return output, err
}
