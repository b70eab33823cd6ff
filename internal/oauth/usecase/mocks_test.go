package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	userDomain "github.com/allisson/authd/internal/user/domain"
)

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) Create(ctx context.Context, client *oauthDomain.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Client), args.Error(1)
}

func (m *MockClientRepository) SetActive(ctx context.Context, id uuid.UUID, isActive bool) error {
	args := m.Called(ctx, id, isActive)
	return args.Error(0)
}

type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) Create(ctx context.Context, grant *oauthDomain.Grant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockGrantRepository) Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Grant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) GetPermanent(
	ctx context.Context,
	tenantID, subjectID, clientID uuid.UUID,
) (*oauthDomain.Grant, error) {
	args := m.Called(ctx, tenantID, subjectID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Grant), args.Error(1)
}

func (m *MockGrantRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status oauthDomain.GrantStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *oauthDomain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*oauthDomain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) RevokeByGrant(
	ctx context.Context,
	grantID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, grantID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeByChain(
	ctx context.Context,
	chainID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, chainID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRefreshTokenRepository) ListActiveByUser(
	ctx context.Context,
	tenantID, userID uuid.UUID,
) ([]*oauthDomain.RefreshToken, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*oauthDomain.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(
	ctx context.Context,
	tenantID, userID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) Create(ctx context.Context, input *userDomain.CreateUserInput) (*userDomain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

func (m *MockUserUseCase) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

func (m *MockUserUseCase) VerifyCredentials(
	ctx context.Context,
	tenantID uuid.UUID,
	username string,
	password string,
) (*userDomain.User, error) {
	args := m.Called(ctx, tenantID, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

type MockSecretService struct {
	mock.Mock
}

func (m *MockSecretService) GenerateSecret() (string, string, error) {
	args := m.Called()
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockSecretService) HashSecret(plainSecret string) (string, error) {
	args := m.Called(plainSecret)
	return args.String(0), args.Error(1)
}

func (m *MockSecretService) CompareSecret(plainSecret string, hashedSecret string) bool {
	args := m.Called(plainSecret, hashedSecret)
	return args.Bool(0)
}

// MockTxManager runs the function directly without a real transaction.
type MockTxManager struct{}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stubSigner records signed claim sets and returns deterministic token strings.
type stubSigner struct {
	mu     sync.Mutex
	signed []oauthDomain.TokenClaims
}

func (s *stubSigner) Sign(ctx context.Context, tenantID uuid.UUID, claims oauthDomain.TokenClaims) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signed = append(s.signed, claims)
	return fmt.Sprintf("signed-jwt-%d", len(s.signed)), nil
}

func (s *stubSigner) lastClaims() oauthDomain.TokenClaims {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.signed) == 0 {
		return nil
	}
	return s.signed[len(s.signed)-1]
}
