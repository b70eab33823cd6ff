package app

import (
	"fmt"

	keysRepository "github.com/allisson/authd/internal/keys/repository"
	keysService "github.com/allisson/authd/internal/keys/service"
)

// SigningKeyRepository returns the signing key repository.
func (c *Container) SigningKeyRepository() (keysService.SigningKeyRepository, error) {
	var err error
	c.signingKeyRepoInit.Do(func() {
		c.signingKeyRepo, err = c.initSigningKeyRepository()
		if err != nil {
			c.initErrors["signingKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["signingKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.signingKeyRepo, nil
}

// KeyManager returns the signing key manager.
func (c *Container) KeyManager() (keysService.KeyManager, error) {
	var err error
	c.keyManagerInit.Do(func() {
		c.keyManager, err = c.initKeyManager()
		if err != nil {
			c.initErrors["keyManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyManager"]; exists {
		return nil, storedErr
	}
	return c.keyManager, nil
}

// initSigningKeyRepository creates the signing key repository based on the database driver.
func (c *Container) initSigningKeyRepository() (keysService.SigningKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for signing key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return keysRepository.NewPostgreSQLSigningKeyRepository(db), nil
	case "mysql":
		return keysRepository.NewMySQLSigningKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyManager creates the key manager with its dependencies.
func (c *Container) initKeyManager() (keysService.KeyManager, error) {
	signingKeyRepo, err := c.SigningKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get signing key repository for key manager: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key manager: %w", err)
	}

	return keysService.NewKeyManager(
		signingKeyRepo,
		txManager,
		c.config.KeyRotationPeriod,
		c.config.KeyGracePeriod,
	), nil
}
