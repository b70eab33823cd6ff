package app

import (
	"fmt"

	oauthRepository "github.com/allisson/authd/internal/oauth/repository"
	oauthService "github.com/allisson/authd/internal/oauth/service"
	oauthUseCase "github.com/allisson/authd/internal/oauth/usecase"
)

// ClientRepository returns the OAuth client repository.
func (c *Container) ClientRepository() (oauthUseCase.ClientRepository, error) {
	var err error
	c.clientRepoInit.Do(func() {
		c.clientRepo, err = c.initClientRepository()
		if err != nil {
			c.initErrors["clientRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["clientRepo"]; exists {
		return nil, storedErr
	}
	return c.clientRepo, nil
}

// GrantRepository returns the grant repository.
func (c *Container) GrantRepository() (oauthUseCase.GrantRepository, error) {
	var err error
	c.grantRepoInit.Do(func() {
		c.grantRepo, err = c.initGrantRepository()
		if err != nil {
			c.initErrors["grantRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["grantRepo"]; exists {
		return nil, storedErr
	}
	return c.grantRepo, nil
}

// RefreshTokenRepository returns the refresh token repository.
func (c *Container) RefreshTokenRepository() (oauthUseCase.RefreshTokenRepository, error) {
	var err error
	c.refreshTokenInit.Do(func() {
		c.refreshTokenRepo, err = c.initRefreshTokenRepository()
		if err != nil {
			c.initErrors["refreshTokenRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["refreshTokenRepo"]; exists {
		return nil, storedErr
	}
	return c.refreshTokenRepo, nil
}

// CodeStore returns the Redis-backed authorization code store.
func (c *Container) CodeStore() (oauthUseCase.CodeStore, error) {
	var err error
	c.codeStoreInit.Do(func() {
		c.codeStore, err = c.initCodeStore()
		if err != nil {
			c.initErrors["codeStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["codeStore"]; exists {
		return nil, storedErr
	}
	return c.codeStore, nil
}

// MarkerStore returns the Redis-backed revocation marker store.
func (c *Container) MarkerStore() (oauthUseCase.MarkerStore, error) {
	var err error
	c.markerStoreInit.Do(func() {
		c.markerStore, err = c.initMarkerStore()
		if err != nil {
			c.initErrors["markerStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["markerStore"]; exists {
		return nil, storedErr
	}
	return c.markerStore, nil
}

// SecretService returns the client secret service.
func (c *Container) SecretService() (oauthService.SecretService, error) {
	c.secretServiceInit.Do(func() {
		c.secretService = oauthService.NewSecretService()
	})
	return c.secretService, nil
}

// TokenService returns the opaque token service.
func (c *Container) TokenService() (oauthService.TokenService, error) {
	c.tokenServiceInit.Do(func() {
		c.tokenService = oauthService.NewTokenService()
	})
	return c.tokenService, nil
}

// TokenSigner returns the JWT token signer.
func (c *Container) TokenSigner() (oauthService.TokenSigner, error) {
	var err error
	c.tokenSignerInit.Do(func() {
		c.tokenSigner, err = c.initTokenSigner()
		if err != nil {
			c.initErrors["tokenSigner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenSigner"]; exists {
		return nil, storedErr
	}
	return c.tokenSigner, nil
}

// TokenUseCase returns the token use case.
func (c *Container) TokenUseCase() (oauthUseCase.TokenUseCase, error) {
	var err error
	c.tokenUCInit.Do(func() {
		c.tokenUC, err = c.initTokenUseCase()
		if err != nil {
			c.initErrors["tokenUC"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenUC"]; exists {
		return nil, storedErr
	}
	return c.tokenUC, nil
}

// AuthorizeUseCase returns the authorization use case.
func (c *Container) AuthorizeUseCase() (oauthUseCase.AuthorizeUseCase, error) {
	var err error
	c.authorizeUCInit.Do(func() {
		c.authorizeUC, err = c.initAuthorizeUseCase()
		if err != nil {
			c.initErrors["authorizeUC"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authorizeUC"]; exists {
		return nil, storedErr
	}
	return c.authorizeUC, nil
}

// ClientUseCase returns the client management use case.
func (c *Container) ClientUseCase() (oauthUseCase.ClientUseCase, error) {
	var err error
	c.clientUCInit.Do(func() {
		c.clientUC, err = c.initClientUseCase()
		if err != nil {
			c.initErrors["clientUC"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["clientUC"]; exists {
		return nil, storedErr
	}
	return c.clientUC, nil
}

// initClientRepository creates the client repository based on the database driver.
func (c *Container) initClientRepository() (oauthUseCase.ClientRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for client repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return oauthRepository.NewPostgreSQLClientRepository(db), nil
	case "mysql":
		return oauthRepository.NewMySQLClientRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initGrantRepository creates the grant repository based on the database driver.
func (c *Container) initGrantRepository() (oauthUseCase.GrantRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for grant repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return oauthRepository.NewPostgreSQLGrantRepository(db), nil
	case "mysql":
		return oauthRepository.NewMySQLGrantRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRefreshTokenRepository creates the refresh token repository based on the database driver.
func (c *Container) initRefreshTokenRepository() (oauthUseCase.RefreshTokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for refresh token repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return oauthRepository.NewPostgreSQLRefreshTokenRepository(db), nil
	case "mysql":
		return oauthRepository.NewMySQLRefreshTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initCodeStore creates the authorization code store.
func (c *Container) initCodeStore() (oauthUseCase.CodeStore, error) {
	redisClient, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for code store: %w", err)
	}

	return oauthRepository.NewRedisCodeStore(redisClient), nil
}

// initMarkerStore creates the revocation marker store.
func (c *Container) initMarkerStore() (oauthUseCase.MarkerStore, error) {
	redisClient, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for marker store: %w", err)
	}

	return oauthRepository.NewRedisMarkerStore(redisClient), nil
}

// initTokenSigner creates the token signer with its dependencies.
func (c *Container) initTokenSigner() (oauthService.TokenSigner, error) {
	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for token signer: %w", err)
	}

	return oauthService.NewTokenSigner(keyManager), nil
}

// initTokenUseCase creates the token use case with its dependencies.
func (c *Container) initTokenUseCase() (oauthUseCase.TokenUseCase, error) {
	clientRepo, err := c.ClientRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get client repository for token use case: %w", err)
	}

	grantRepo, err := c.GrantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant repository for token use case: %w", err)
	}

	refreshTokenRepo, err := c.RefreshTokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token repository for token use case: %w", err)
	}

	codeStore, err := c.CodeStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get code store for token use case: %w", err)
	}

	markerStore, err := c.MarkerStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get marker store for token use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for token use case: %w", err)
	}

	userUC, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for token use case: %w", err)
	}

	secretService, err := c.SecretService()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret service for token use case: %w", err)
	}

	tokenService, err := c.TokenService()
	if err != nil {
		return nil, fmt.Errorf("failed to get token service for token use case: %w", err)
	}

	tokenSigner, err := c.TokenSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get token signer for token use case: %w", err)
	}

	useCase := oauthUseCase.NewTokenUseCase(
		c.config,
		clientRepo,
		grantRepo,
		refreshTokenRepo,
		codeStore,
		markerStore,
		txManager,
		userUC,
		secretService,
		tokenService,
		tokenSigner,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
		}
		return oauthUseCase.NewTokenUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}

// initAuthorizeUseCase creates the authorization use case with its dependencies.
func (c *Container) initAuthorizeUseCase() (oauthUseCase.AuthorizeUseCase, error) {
	clientRepo, err := c.ClientRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get client repository for authorize use case: %w", err)
	}

	grantRepo, err := c.GrantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant repository for authorize use case: %w", err)
	}

	codeStore, err := c.CodeStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get code store for authorize use case: %w", err)
	}

	userUC, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for authorize use case: %w", err)
	}

	tokenService, err := c.TokenService()
	if err != nil {
		return nil, fmt.Errorf("failed to get token service for authorize use case: %w", err)
	}

	useCase := oauthUseCase.NewAuthorizeUseCase(
		c.config,
		clientRepo,
		grantRepo,
		codeStore,
		userUC,
		tokenService,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for authorize use case: %w", err)
		}
		return oauthUseCase.NewAuthorizeUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}

// initClientUseCase creates the client management use case with its dependencies.
func (c *Container) initClientUseCase() (oauthUseCase.ClientUseCase, error) {
	clientRepo, err := c.ClientRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get client repository for client use case: %w", err)
	}

	secretService, err := c.SecretService()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret service for client use case: %w", err)
	}

	return oauthUseCase.NewClientUseCase(clientRepo, secretService), nil
}
