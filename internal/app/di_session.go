package app

import (
	"fmt"

	"github.com/allisson/authd/internal/session"
	sessionRepository "github.com/allisson/authd/internal/session/repository"
)

// SessionManager returns the BFF session manager.
func (c *Container) SessionManager() (*session.Manager, error) {
	var err error
	c.sessionManagerInit.Do(func() {
		c.sessionManager, err = c.initSessionManager()
		if err != nil {
			c.initErrors["sessionManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionManager"]; exists {
		return nil, storedErr
	}
	return c.sessionManager, nil
}

// initSessionManager creates the session manager with its Redis store.
func (c *Container) initSessionManager() (*session.Manager, error) {
	redisClient, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for session manager: %w", err)
	}

	store := sessionRepository.NewRedisSessionStore(redisClient)
	return session.NewManager(store, c.config), nil
}
