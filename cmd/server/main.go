package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/api"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/config"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/service"
	internalgrpc "github.com/EgehanKilicarslan/sessionkeeper/internal/grpc"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/handler"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/logger"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/middleware"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/worker"
)

func main() {
	// 1. Config
	dotEnvErr := config.LoadDotEnv()
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	if dotEnvErr != nil {
		appLogger.Debug("📄 No .env file loaded, using environment variables")
	}

	if err := cfg.Validate(); err != nil {
		appLogger.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}

	appLogger.Info("🚀 [Go] Starting SessionKeeper...",
		"environment", cfg.AppEnv,
		"access_ttl", cfg.AccessTokenTTL(),
		"refresh_ttl", cfg.RefreshTokenTTL(),
	)

	// 3. Connect to Database
	if err := database.ConnectDatabase(cfg, appLogger); err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}

	db := database.GetDatabase()

	// 4. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	// 5. Initialize Redis Client
	var (
		revocationCache service.RevocationCache
		revokedChecker  service.RevokedFamilyChecker
		rateLimiter     middleware.RateLimiter
	)
	redisClient, err := database.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis", "error", err)
		appLogger.Info("💡 Revoked sessions keep their access tokens until expiry; rate limiting disabled")
		rateLimiter = middleware.NewNoOpRateLimiter(appLogger)
	} else {
		revocationCache = redisClient
		revokedChecker = redisClient
		rateLimiter = middleware.NewRateLimiter(redisClient.GetClient(), appLogger)
	}
	defer rateLimiter.Close()

	// 6. Initialize Token Engine
	signer, err := token.NewJWTSigner(token.JWTConfig{
		AccessSecret:  []byte(cfg.JWTAccessSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.AccessTokenTTL(),
		RefreshTTL:    cfg.RefreshTokenTTL(),
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		appLogger.Error("❌ Failed to create credential signer", "error", err)
		os.Exit(1)
	}

	ids := token.NewIdentifierGenerator()
	engine := service.NewEngine(refreshTokenRepo, ids, signer, revocationCache, appLogger)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, engine, ids, signer, revokedChecker, cfg, appLogger)

	// 8. Initialize Handlers & Middleware
	authHandler := handler.NewAuthHandler(authService, appLogger)
	adminHandler := handler.NewAdminHandler(authService, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)

	// 9. Start Background Workers
	pool := worker.NewPool(appLogger)
	worker.NewTokenCleanupJob(refreshTokenRepo, cfg.TokenCleanupInterval, cfg.TokenRetention, appLogger).Start(pool)

	// 10. Start gRPC Server (token introspection)
	grpcServer := internalgrpc.NewServer(authService, appLogger)

	grpcAddr := fmt.Sprintf(":%s", cfg.ApiGrpcPort)
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		appLogger.Error("❌ Failed to listen for gRPC", "error", err)
		os.Exit(1)
	}

	go func() {
		appLogger.Info("🔌 [Go] gRPC Server running...", "port", cfg.ApiGrpcPort)
		if err := grpcServer.Serve(grpcListener); err != nil {
			appLogger.Error("❌ gRPC Server failed", "error", err)
		}
	}()

	// 11. Start HTTP Server
	r := api.SetupRouter(cfg, authHandler, adminHandler, authMiddleware, rateLimiter, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler: r,
	}

	go func() {
		appLogger.Info("🌍 [Go] HTTP Server running on port...", "port", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("❌ HTTP Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// 12. Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("🛑 [Go] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("❌ HTTP Server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	pool.Shutdown(5 * time.Second)

	appLogger.Info("✅ [Go] Shutdown complete")
}
