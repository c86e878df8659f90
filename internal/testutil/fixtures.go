package testutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/api"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/config"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/service"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/handler"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/middleware"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
)

// ErrExhausted is returned by SequenceIDGenerator once it runs out of ids
var ErrExhausted = errors.New("testutil: id sequence exhausted")

// Fixed secrets used by every test signer
const (
	TestAccessSecret  = "test-access-secret-0123456789abcdef"
	TestRefreshSecret = "test-refresh-secret-0123456789abcdef"
	TestPassword      = "password123"
)

// TestConfig returns a valid configuration for tests
func TestConfig() *config.Config {
	return &config.Config{
		AppEnv:                 "test",
		LogLevel:               slog.LevelError,
		JWTAccessSecret:        TestAccessSecret,
		JWTRefreshSecret:       TestRefreshSecret,
		JWTIssuer:              "sessionkeeper-test",
		AccessTokenExpiration:  900,
		RefreshTokenExpiration: 604800,
		TokenCleanupInterval:   time.Hour,
		TokenRetention:         72 * time.Hour,
		AuthRateLimit:          20,
		AuthRateWindow:         time.Minute,
	}
}

// TestLogger returns a logger that discards its output
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Clock is a manually advanced time source shared by the signer and the services
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed UTC instant
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewTestDB opens an in-memory sqlite database with the schema migrated.
// A single connection keeps every caller on the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// NewTestSigner returns a signer using the test secrets and clock
func NewTestSigner(t *testing.T, cfg *config.Config, clock *Clock) *token.JWTSigner {
	t.Helper()

	signer, err := token.NewJWTSigner(token.JWTConfig{
		AccessSecret:  []byte(cfg.JWTAccessSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.AccessTokenTTL(),
		RefreshTTL:    cfg.RefreshTokenTTL(),
		Issuer:        cfg.JWTIssuer,
	})
	require.NoError(t, err)

	return signer.WithClock(clock.Now)
}

// Stack is a fully wired token engine and auth service over sqlite
type Stack struct {
	DB     *gorm.DB
	Clock  *Clock
	Config *config.Config
	Logger *slog.Logger
	Signer *token.JWTSigner
	IDs    token.IdentifierGenerator
	Users  repository.UserRepository
	Tokens repository.RefreshTokenRepository
	Engine *service.Engine
	Auth   service.AuthService
}

// NewStack wires a Stack. cache may be nil.
func NewStack(t *testing.T, cfg *config.Config, cache RevocationCache) *Stack {
	t.Helper()

	if cfg == nil {
		cfg = TestConfig()
	}

	db := NewTestDB(t)
	clock := NewClock()
	logger := TestLogger()
	signer := NewTestSigner(t, cfg, clock)
	ids := token.NewIdentifierGenerator()
	users := repository.NewUserRepository(db)
	tokens := repository.NewRefreshTokenRepository(db)

	var (
		revocationCache service.RevocationCache
		revokedChecker  service.RevokedFamilyChecker
	)
	if cache != nil {
		revocationCache = cache
		revokedChecker = cache
	}

	engine := service.NewEngine(tokens, ids, signer, revocationCache, logger, service.WithClock(clock.Now))
	auth := service.NewAuthService(users, tokens, engine, ids, signer, revokedChecker, cfg, logger, service.WithClock(clock.Now))

	return &Stack{
		DB:     db,
		Clock:  clock,
		Config: cfg,
		Logger: logger,
		Signer: signer,
		IDs:    ids,
		Users:  users,
		Tokens: tokens,
		Engine: engine,
		Auth:   auth,
	}
}

// RevocationCache is both halves of the revoked-family cache
type RevocationCache interface {
	service.RevocationCache
	service.RevokedFamilyChecker
}

// CreateUser stores a user whose password is TestPassword
func (s *Stack) CreateUser(t *testing.T, email, role string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		FullName: "Test User",
		Role:     role,
		Password: string(hash),
	}
	require.NoError(t, s.Users.Create(context.Background(), user))
	return user
}

// Router builds the HTTP API over the stack
func (s *Stack) Router(limiter middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)

	if limiter == nil {
		limiter = middleware.NewNoOpRateLimiter(s.Logger)
	}

	return api.SetupRouter(
		s.Config,
		handler.NewAuthHandler(s.Auth, s.Logger),
		handler.NewAdminHandler(s.Auth, s.Logger),
		middleware.NewAuthMiddleware(s.Auth, s.Logger),
		limiter,
		s.Logger,
	)
}
