package app

import (
	"context"

	"access-service/internal/account"
	"access-service/internal/admin"
	"access-service/internal/auth/credentials"
	"access-service/internal/auth/handler"
	"access-service/internal/auth/provider"
	"access-service/internal/auth/provider/google"
	"access-service/internal/auth/resolver"
	"access-service/internal/config"
	"access-service/internal/middleware"
	"access-service/internal/session"
	"access-service/internal/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg *config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	store := account.NewPostgresStore(infra.DB)
	sessionStore := session.NewRedisStore(infra.Redis.Client)
	signInResolver := resolver.NewStoreResolver(store)
	credentialService := credentials.NewService(store)
	tokenManager := token.NewManager(cfg.Security.TokenSecret, cfg.Security.TokenTTL)

	if err := bootstrapSuperAdmin(ctx, store, cfg.Security.BootstrapSuperAdminEmail); err != nil {
		return nil, nil, err
	}

	googleProvider, err := google.New(
		ctx,
		cfg.Google.ClientID,
		cfg.Google.ClientSecret,
		cfg.Google.RedirectURL,
	)
	if err != nil {
		return nil, nil, err
	}

	registry := provider.NewRegistry(googleProvider)

	authHandler := handler.NewHandler(
		registry,
		sessionStore,
		signInResolver,
		credentialService,
		cfg.Session.Lifetime,
		cfg.Session.Secure,
	)

	adminService := admin.NewService(store)
	adminHandler := admin.NewHandler(adminService, tokenManager, store)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore)
	sessionAuth := middleware.GinRequireAuth(authMiddleware)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Admin API (session-gated token minting + bearer-gated surface)
	// ----------------------------

	adminHandler.RegisterRoutes(router, sessionAuth)

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(sessionAuth)

	api.GET("/me", func(c *gin.Context) {
		sess, ok := middleware.SessionFromContext(c.Request.Context())
		if !ok {
			c.JSON(401, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(200, gin.H{
			"user_id": sess.UserID,
			"role":    sess.Role,
		})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
