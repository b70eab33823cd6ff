package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/authd/internal/errors"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

func TestClientUseCase(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	t.Run("Create_GeneratedSecret", func(t *testing.T) {
		clientRepo := new(MockClientRepository)
		secrets := new(MockSecretService)
		uc := NewClientUseCase(clientRepo, secrets)

		secrets.On("GenerateSecret").Return("plain-secret", "hashed-secret", nil)

		var created *oauthDomain.Client
		clientRepo.On("Create", ctx, mock.AnythingOfType("*domain.Client")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*oauthDomain.Client)
			}).
			Return(nil)

		output, err := uc.Create(ctx, &oauthDomain.CreateClientInput{
			TenantID:       tenantID,
			Name:           "web-app",
			RedirectURIs:   []string{"https://app.example.com/callback"},
			GrantTypes:     []string{oauthDomain.GrantTypeAuthorizationCode},
			IsConfidential: true,
		})
		require.NoError(t, err)

		assert.Equal(t, "plain-secret", output.PlainSecret)
		require.NotNil(t, created)
		assert.Equal(t, "hashed-secret", created.SecretHash)
		assert.Equal(t, tenantID, created.TenantID)
		assert.True(t, created.IsActive)
		assert.NotEqual(t, uuid.Nil, created.ID)
	})

	t.Run("Create_ProvidedSecret", func(t *testing.T) {
		clientRepo := new(MockClientRepository)
		secrets := new(MockSecretService)
		uc := NewClientUseCase(clientRepo, secrets)

		secrets.On("HashSecret", "operator-secret").Return("operator-hash", nil)
		clientRepo.On("Create", ctx, mock.AnythingOfType("*domain.Client")).Return(nil)

		output, err := uc.Create(ctx, &oauthDomain.CreateClientInput{
			TenantID:   tenantID,
			Name:       "cli-tool",
			Secret:     "operator-secret",
			GrantTypes: []string{oauthDomain.GrantTypeClientCredentials},
		})
		require.NoError(t, err)
		assert.Equal(t, "operator-secret", output.PlainSecret)
		secrets.AssertNotCalled(t, "GenerateSecret")
	})

	t.Run("Create_UnknownGrantType", func(t *testing.T) {
		clientRepo := new(MockClientRepository)
		secrets := new(MockSecretService)
		uc := NewClientUseCase(clientRepo, secrets)

		output, err := uc.Create(ctx, &oauthDomain.CreateClientInput{
			TenantID:   tenantID,
			Name:       "web-app",
			GrantTypes: []string{"implicit"},
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Nil(t, output)
		clientRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Create_NoGrantTypes", func(t *testing.T) {
		clientRepo := new(MockClientRepository)
		uc := NewClientUseCase(clientRepo, new(MockSecretService))

		output, err := uc.Create(ctx, &oauthDomain.CreateClientInput{
			TenantID: tenantID,
			Name:     "web-app",
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Nil(t, output)
		clientRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Get", func(t *testing.T) {
		clientRepo := new(MockClientRepository)
		uc := NewClientUseCase(clientRepo, new(MockSecretService))
		client := newTestClient(tenantID, true, oauthDomain.GrantTypeAuthorizationCode)

		clientRepo.On("Get", ctx, client.ID).Return(client, nil)

		got, err := uc.Get(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, client, got)
	})

	t.Run("SetActive", func(t *testing.T) {
		clientRepo := new(MockClientRepository)
		uc := NewClientUseCase(clientRepo, new(MockSecretService))
		clientID := uuid.Must(uuid.NewV7())

		clientRepo.On("SetActive", ctx, clientID, false).Return(nil)

		require.NoError(t, uc.SetActive(ctx, clientID, false))
		clientRepo.AssertExpectations(t)
	})
}
