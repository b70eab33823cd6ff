package usecase

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
	oauthService "github.com/allisson/authd/internal/oauth/service"
	appValidation "github.com/allisson/authd/internal/validation"
)

// clientUseCase implements ClientUseCase.
type clientUseCase struct {
	clientRepo    ClientRepository
	secretService oauthService.SecretService
}

// validateCreateClientInput validates client registration input including:
// - Name presence and length
// - At least one allowed grant type, each one known
func (c *clientUseCase) validateCreateClientInput(input *oauthDomain.CreateClientInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.GrantTypes,
			validation.Required.Error("at least one grant type is required"),
			validation.Each(validation.In(
				oauthDomain.GrantTypeAuthorizationCode,
				oauthDomain.GrantTypeRefreshToken,
				oauthDomain.GrantTypeClientCredentials,
				oauthDomain.GrantTypePassword,
			)),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Create registers a new OAuth client. The generated secret is returned in
// plaintext exactly once; only its Argon2id hash is stored.
func (c *clientUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateClientInput,
) (*oauthDomain.CreateClientOutput, error) {
	if err := c.validateCreateClientInput(input); err != nil {
		return nil, err
	}

	plainSecret := input.Secret
	var hashedSecret string
	var err error

	if plainSecret == "" {
		plainSecret, hashedSecret, err = c.secretService.GenerateSecret()
		if err != nil {
			return nil, err
		}
	} else {
		hashedSecret, err = c.secretService.HashSecret(plainSecret)
		if err != nil {
			return nil, err
		}
	}

	client := &oauthDomain.Client{
		ID:             uuid.Must(uuid.NewV7()),
		TenantID:       input.TenantID,
		Name:           input.Name,
		SecretHash:     hashedSecret,
		RedirectURIs:   input.RedirectURIs,
		GrantTypes:     input.GrantTypes,
		IsConfidential: input.IsConfidential,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}

	if err := c.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	return &oauthDomain.CreateClientOutput{
		Client:      client,
		PlainSecret: plainSecret,
	}, nil
}

// Get retrieves a client by ID.
func (c *clientUseCase) Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Client, error) {
	return c.clientRepo.Get(ctx, id)
}

// SetActive enables or disables a client.
func (c *clientUseCase) SetActive(ctx context.Context, id uuid.UUID, isActive bool) error {
	return c.clientRepo.SetActive(ctx, id, isActive)
}

// NewClientUseCase creates a new ClientUseCase with the provided dependencies.
func NewClientUseCase(clientRepo ClientRepository, secretService oauthService.SecretService) ClientUseCase {
	return &clientUseCase{
		clientRepo:    clientRepo,
		secretService: secretService,
	}
}
