package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/config"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/handler"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/middleware"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	adminHandler *handler.AdminHandler,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter middleware.RateLimiter,
	logger *slog.Logger,
) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)
	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	// Public routes
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	limit := func(route config.RouteName) gin.HandlerFunc {
		return middleware.RateLimit(rateLimiter, cfg, route, logger)
	}

	// Auth routes (Public)
	authGroup := r.Group("/api/v1/auth")
	{
		authGroup.POST("/register", limit(config.RouteRegister), authHandler.Register)
		authGroup.POST("/login", limit(config.RouteLogin), authHandler.Login)
		authGroup.POST("/refresh", limit(config.RouteRefresh), authHandler.RefreshToken)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Session routes (Protected)
	sessionGroup := r.Group("/api/v1/auth")
	sessionGroup.Use(authMiddleware.RequireAuth())
	{
		sessionGroup.POST("/logout-all", authHandler.LogoutAll)
		sessionGroup.GET("/sessions", authHandler.ListSessions)
	}

	// Admin routes
	if adminHandler != nil {
		adminGroup := r.Group("/api/v1/admin")
		adminGroup.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(models.RoleAdmin))
		{
			adminGroup.GET("/users/:id/sessions", adminHandler.ListUserSessions)
			adminGroup.POST("/users/:id/revoke-sessions", adminHandler.RevokeUserSessions)
		}
	}

	return r
}

// corsConfig allows browser clients from origins to call the API with a bearer token.
// A lone "*" allows any origin but then cookies and credentials are not shared.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Retry-After", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
