package app

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/ttys3/gitea-sso/internal/auth/credentials"
	"github.com/ttys3/gitea-sso/internal/auth/handler"
	"github.com/ttys3/gitea-sso/internal/auth/provider"
	"github.com/ttys3/gitea-sso/internal/auth/provider/gitea"
	"github.com/ttys3/gitea-sso/internal/auth/provider/oidc"
	"github.com/ttys3/gitea-sso/internal/auth/resolver"
	"github.com/ttys3/gitea-sso/internal/config"
	"github.com/ttys3/gitea-sso/internal/logger"
	"github.com/ttys3/gitea-sso/internal/middleware"
	"github.com/ttys3/gitea-sso/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	identityResolver := resolver.NewDBResolver(infra.DB)
	credentialService := credentials.NewService(infra.DB)

	// Provider options: dotenv file values take priority over the
	// environment so operators can reconfigure without a restart.
	opts := config.NewFileOptions(os.Getenv("OPTIONS_FILE"))

	providers := []provider.OAuthProvider{
		gitea.New(opts, cfg.RedirectURL("gitea")),
	}

	if cfg.OIDCIssuer != "" {
		oidcProvider, err := oidc.New(
			ctx,
			cfg.OIDCIssuer,
			cfg.OIDCClientID,
			cfg.OIDCClientSecret,
			cfg.RedirectURL("oidc"),
		)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, oidcProvider)
	}

	registry := provider.NewRegistry(providers...)

	for _, p := range registry.All() {
		logger.Info("registered oauth provider", map[string]any{
			"provider": p.Name(),
		})
	}

	authHandler := handler.NewHandler(
		registry,
		sessionStore,
		identityResolver,
		credentialService,
		cfg.PublicBaseURL,
	)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	authHandler.RegisterAdminRoutes(api)

	api.GET("/me", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"user_id": c.GetString(middleware.ContextUserID),
		})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
