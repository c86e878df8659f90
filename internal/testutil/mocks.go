package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/config"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/service"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
)

// ==================== MOCK USER REPOSITORY ====================

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// ==================== MOCK REFRESH TOKEN REPOSITORY ====================

// MockRefreshTokenRepository implements repository.RefreshTokenRepository for testing.
// Transaction runs fn against the mock itself.
type MockRefreshTokenRepository struct {
	mock.Mock
}

var _ repository.RefreshTokenRepository = (*MockRefreshTokenRepository)(nil)

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) FindByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	args := m.Called(ctx, jti)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) MarkUsed(ctx context.Context, jti, replacedByJTI string, usedAt time.Time) error {
	args := m.Called(ctx, jti, replacedByJTI, usedAt)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) RevokeFamily(ctx context.Context, tokenFamily string, userID uint) (int64, error) {
	args := m.Called(ctx, tokenFamily, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefreshTokenRepository) ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]models.RefreshToken, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) ListFamilies(ctx context.Context, userID uint) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefreshTokenRepository) Transaction(ctx context.Context, fn func(repo repository.RefreshTokenRepository) error) error {
	return fn(m)
}

// ==================== MOCK IDENTIFIER GENERATOR ====================

// SequenceIDGenerator hands out the given ids in order, then fails
type SequenceIDGenerator struct {
	IDs []string
	Err error
}

var _ token.IdentifierGenerator = (*SequenceIDGenerator)(nil)

func (g *SequenceIDGenerator) NewID() (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.IDs) == 0 {
		return "", ErrExhausted
	}
	id := g.IDs[0]
	g.IDs = g.IDs[1:]
	return id, nil
}

// ==================== MOCK REVOCATION CACHE ====================

// MockRevocationCache implements the service layer's revoked-family cache and checker
type MockRevocationCache struct {
	mock.Mock
}

func (m *MockRevocationCache) MarkFamiliesRevoked(ctx context.Context, families ...string) error {
	args := m.Called(ctx, families)
	return args.Error(0)
}

func (m *MockRevocationCache) IsFamilyRevoked(ctx context.Context, family string) (bool, error) {
	args := m.Called(ctx, family)
	return args.Bool(0), args.Error(1)
}

// ==================== MOCK RATE LIMITER ====================

// MockRateLimiter implements middleware.RateLimiter for testing
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, policy config.RateLimitPolicy, clientKey string) (bool, int64, time.Duration, error) {
	args := m.Called(ctx, policy, clientKey)
	return args.Bool(0), args.Get(1).(int64), args.Get(2).(time.Duration), args.Error(3)
}

func (m *MockRateLimiter) Close() error {
	return nil
}

// ==================== MOCK AUTH SERVICE ====================

// MockAuthService implements service.AuthService for handler and middleware tests
type MockAuthService struct {
	mock.Mock
}

var _ service.AuthService = (*MockAuthService)(nil)

func (m *MockAuthService) Register(ctx context.Context, input service.RegisterInput) (*models.User, *service.TokenPair, error) {
	args := m.Called(ctx, input)
	user, _ := args.Get(0).(*models.User)
	tokens, _ := args.Get(1).(*service.TokenPair)
	return user, tokens, args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, input service.LoginInput) (*models.User, *service.TokenPair, error) {
	args := m.Called(ctx, input)
	user, _ := args.Get(0).(*models.User)
	tokens, _ := args.Get(1).(*service.TokenPair)
	return user, tokens, args.Error(2)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string, meta service.ClientMeta) (*service.TokenPair, error) {
	args := m.Called(ctx, refreshToken, meta)
	tokens, _ := args.Get(0).(*service.TokenPair)
	return tokens, args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthService) ListSessions(ctx context.Context, userID uint) ([]service.Session, error) {
	args := m.Called(ctx, userID)
	sessions, _ := args.Get(0).([]service.Session)
	return sessions, args.Error(1)
}

func (m *MockAuthService) ValidateAccessToken(ctx context.Context, tokenString string) (*token.Claims, error) {
	args := m.Called(ctx, tokenString)
	claims, _ := args.Get(0).(*token.Claims)
	return claims, args.Error(1)
}
