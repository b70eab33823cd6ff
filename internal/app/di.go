// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/allisson/authd/internal/cache"
	"github.com/allisson/authd/internal/config"
	"github.com/allisson/authd/internal/database"
	"github.com/allisson/authd/internal/http"
	keysService "github.com/allisson/authd/internal/keys/service"
	keysWorker "github.com/allisson/authd/internal/keys/worker"
	"github.com/allisson/authd/internal/metrics"
	oauthHTTP "github.com/allisson/authd/internal/oauth/http"
	oauthService "github.com/allisson/authd/internal/oauth/service"
	oauthUseCase "github.com/allisson/authd/internal/oauth/usecase"
	"github.com/allisson/authd/internal/session"
	"github.com/allisson/authd/internal/tenant"
	tenantUseCase "github.com/allisson/authd/internal/tenant/usecase"
	userService "github.com/allisson/authd/internal/user/service"
	userUseCase "github.com/allisson/authd/internal/user/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger      *slog.Logger
	db          *sql.DB
	redisClient *redis.Client

	// Managers
	txManager database.TxManager

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Repositories
	tenantRepo       tenantUseCase.TenantRepository
	userRepo         userUseCase.UserRepository
	signingKeyRepo   keysService.SigningKeyRepository
	clientRepo       oauthUseCase.ClientRepository
	grantRepo        oauthUseCase.GrantRepository
	refreshTokenRepo oauthUseCase.RefreshTokenRepository
	codeStore        oauthUseCase.CodeStore
	markerStore      oauthUseCase.MarkerStore

	// Services
	passwordService userService.PasswordService
	secretService   oauthService.SecretService
	tokenService    oauthService.TokenService
	tokenSigner     oauthService.TokenSigner
	keyManager      keysService.KeyManager

	// Use Cases
	tenantUC    tenantUseCase.TenantUseCase
	userUC      userUseCase.UserUseCase
	tokenUC     oauthUseCase.TokenUseCase
	authorizeUC oauthUseCase.AuthorizeUseCase
	clientUC    oauthUseCase.ClientUseCase

	// Tenancy and sessions
	tenantResolver *tenant.Resolver
	sessionManager *session.Manager

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	keyRotator    *keysWorker.Rotator

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	redisInit           sync.Once
	txManagerInit       sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	tenantRepoInit      sync.Once
	userRepoInit        sync.Once
	signingKeyRepoInit  sync.Once
	clientRepoInit      sync.Once
	grantRepoInit       sync.Once
	refreshTokenInit    sync.Once
	codeStoreInit       sync.Once
	markerStoreInit     sync.Once
	passwordServiceInit sync.Once
	secretServiceInit   sync.Once
	tokenServiceInit    sync.Once
	tokenSignerInit     sync.Once
	keyManagerInit      sync.Once
	tenantUCInit        sync.Once
	userUCInit          sync.Once
	tokenUCInit         sync.Once
	authorizeUCInit     sync.Once
	clientUCInit        sync.Once
	tenantResolverInit  sync.Once
	sessionManagerInit  sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	keyRotatorInit      sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// RedisClient returns the Redis connection used for authorization codes,
// revocation markers, and BFF sessions.
func (c *Container) RedisClient() (*redis.Client, error) {
	var err error
	c.redisInit.Do(func() {
		c.redisClient, err = c.initRedisClient()
		if err != nil {
			c.initErrors["redisClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["redisClient"]; exists {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the Prometheus metrics provider.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. When metrics are
// disabled a no-op recorder is returned so use cases stay unconditional.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// KeyRotator returns the background signing key rotation worker.
func (c *Container) KeyRotator() (*keysWorker.Rotator, error) {
	var err error
	c.keyRotatorInit.Do(func() {
		var keyManager keysService.KeyManager
		keyManager, err = c.KeyManager()
		if err != nil {
			c.initErrors["keyRotator"] = err
			return
		}
		c.keyRotator = keysWorker.NewRotator(keyManager, c.config.KeyRotationCheckInterval)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRotator"]; exists {
		return nil, storedErr
	}
	return c.keyRotator, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// initDB creates the database connection from configuration.
func (c *Container) initDB() (*sql.DB, error) {
	return database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
}

// initRedisClient creates the Redis connection from configuration.
func (c *Container) initRedisClient() (*redis.Client, error) {
	return cache.Connect(context.Background(), cache.Config{
		Addr:     c.config.RedisAddr,
		Password: c.config.RedisPassword,
		DB:       c.config.RedisDB,
	})
}

// initTxManager creates the transaction manager.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}

	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	routes, err := c.oauthRoutes()
	if err != nil {
		return nil, fmt.Errorf("failed to build oauth routes: %w", err)
	}

	server := http.NewServer(
		db,
		c.config.ServerHost,
		c.config.ServerPort,
		logger,
		routes,
	)

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		server.Use(metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace))
	}

	server.Use(http.CreateCORSMiddleware(c.config.CORSEnabled, c.config.CORSAllowOrigins, logger))

	return server, nil
}

// oauthRoutes wires the OAuth endpoints onto the router: middleware stack
// (session before tenant, so a session can supply the tenant fallback), the
// four protocol endpoints, and the well-known documents.
func (c *Container) oauthRoutes() (http.RouteRegistrar, error) {
	logger := c.Logger()

	tokenUC, err := c.TokenUseCase()
	if err != nil {
		return nil, err
	}
	authorizeUC, err := c.AuthorizeUseCase()
	if err != nil {
		return nil, err
	}
	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, err
	}
	resolver, err := c.TenantResolver()
	if err != nil {
		return nil, err
	}
	sessionManager, err := c.SessionManager()
	if err != nil {
		return nil, err
	}

	tokenHandler := oauthHTTP.NewTokenHandler(tokenUC, logger)
	authorizeHandler := oauthHTTP.NewAuthorizeHandler(authorizeUC, logger)
	logoutHandler := oauthHTTP.NewLogoutHandler(tokenUC, sessionManager, logger)
	wellKnownHandler := oauthHTTP.NewWellKnownHandler(keyManager, resolver, c.config, logger)

	cfg := c.config
	return func(router *gin.Engine) {
		router.GET("/.well-known/jwks.json", wellKnownHandler.JWKSHandler)
		router.GET("/.well-known/openid-configuration", wellKnownHandler.DiscoveryHandler)

		oauth := router.Group("/oauth")
		if cfg.SessionEnabled {
			oauth.Use(oauthHTTP.SessionMiddleware(sessionManager, logger))
		}
		oauth.Use(oauthHTTP.TenantMiddleware(resolver, logger))

		tokenRoutes := oauth.Group("")
		if cfg.RateLimitTokenEnabled {
			tokenRoutes.Use(oauthHTTP.TokenRateLimitMiddleware(
				cfg.RateLimitTokenRequestsPerSec,
				cfg.RateLimitTokenBurst,
				logger,
			))
		}
		tokenRoutes.POST("/token", tokenHandler.TokenEndpointHandler)

		oauth.POST("/revoke", tokenHandler.RevokeHandler)
		oauth.GET("/authorize", authorizeHandler.AuthorizeEndpointHandler)
		oauth.POST("/logout", logoutHandler.LogoutEndpointHandler)
	}, nil
}

// initMetricsServer creates the metrics server when metrics are enabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
