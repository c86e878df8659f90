package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/config"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, *TokenPair, error)
	Login(ctx context.Context, input LoginInput) (*models.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uint) error
	ListSessions(ctx context.Context, userID uint) ([]Session, error)
	ValidateAccessToken(ctx context.Context, tokenString string) (*token.Claims, error)
}

// ClientMeta is request provenance extracted by the transport layer
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type RegisterInput struct {
	Email    string
	FullName string
	Password string
	Meta     ClientMeta
}

type LoginInput struct {
	Email    string
	Password string
	Meta     ClientMeta
}

// Session is one live token family as seen by its owner
type Session struct {
	TokenFamily string    `json:"token_family"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	LastRotated time.Time `json:"last_rotated"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RevokedFamilyChecker answers whether a family was revoked recently
type RevokedFamilyChecker interface {
	IsFamilyRevoked(ctx context.Context, family string) (bool, error)
}

type authService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
	engine    *Engine
	ids       token.IdentifierGenerator
	signer    token.CredentialSigner
	revoked   RevokedFamilyChecker
	cfg       *config.Config
	logger    *slog.Logger
	now       Clock
}

// NewAuthService creates a new authentication service instance. revoked may be nil.
func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	engine *Engine,
	ids token.IdentifierGenerator,
	signer token.CredentialSigner,
	revoked RevokedFamilyChecker,
	cfg *config.Config,
	logger *slog.Logger,
	opts ...Option,
) AuthService {
	o := buildOptions(opts)
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		engine:    engine,
		ids:       ids,
		signer:    signer,
		revoked:   revoked,
		cfg:       cfg,
		logger:    logger,
		now:       o.now,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, *TokenPair, error) {
	s.logger.Info("📝 [AuthService] Registration attempt", "email", input.Email)

	existingUser, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, err
	}

	if existingUser != nil {
		s.logger.Warn("⚠️ [AuthService] Email already registered", "email", input.Email)
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return nil, nil, err
	}

	user := &models.User{
		Email:    input.Email,
		FullName: input.FullName,
		Role:     models.RoleUser,
		Password: string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("❌ [AuthService] Failed to create user", "error", err)
		return nil, nil, err
	}

	tokens, err := s.issueFor(ctx, user, input.Meta)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate tokens", "error", err)
		return nil, nil, err
	}

	s.logger.Info("✅ [AuthService] User registered successfully", "user_id", user.ID)
	return user, tokens, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, *TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Login attempt", "email", input.Email)

	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] User not found", "email", input.Email)
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Invalid password", "email", input.Email)
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueFor(ctx, user, input.Meta)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate tokens", "error", err)
		return nil, nil, err
	}

	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID)
	return user, tokens, nil
}

// Refresh validates the presented refresh token, signs its successor and
// rotates the family forward.
func (s *authService) Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*TokenPair, error) {
	s.logger.Info("🔄 [AuthService] Token refresh attempt", "ip_address", meta.IPAddress)

	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	record, err := s.engine.Validator.Validate(ctx, claims.JTI, refreshToken)
	if err != nil {
		if errors.Is(err, ErrReplayDetected) {
			s.logger.Error("🚨 [AuthService] Replay detected, sessions terminated", "jti", claims.JTI)
		} else {
			s.logger.Warn("⚠️ [AuthService] Refresh token rejected", "error", err)
		}
		return nil, err
	}

	// Claims are re-read so role changes take effect on the next rotation
	user, err := s.userRepo.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] Token owner no longer exists", "user_id", record.UserID)
			if revokeErr := s.engine.Revoker.RevokeFamily(ctx, record.TokenFamily, record.UserID); revokeErr != nil {
				return nil, revokeErr
			}
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	newJTI, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate jti: %w", err)
	}

	tokens, err := signPair(s.ids, s.signer, user.ID, identityOf(user), newJTI, record.TokenFamily)
	if err != nil {
		return nil, err
	}

	_, err = s.engine.Rotator.Rotate(ctx, RotateRequest{
		OldJTI:                record.JTI,
		NewSignedRefreshToken: tokens.RefreshToken,
		NewJTI:                newJTI,
		TTLSeconds:            int64(s.signer.RefreshTTL().Seconds()),
		IPAddress:             meta.IPAddress,
		UserAgent:             meta.UserAgent,
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentRotation) && s.cfg.RevokeFamilyOnContention {
			if revokeErr := s.engine.Revoker.RevokeFamily(ctx, record.TokenFamily, record.UserID); revokeErr != nil {
				return nil, errors.Join(err, revokeErr)
			}
		}
		s.logger.Warn("⚠️ [AuthService] Rotation failed", "user_id", record.UserID, "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] Token refreshed successfully", "user_id", user.ID)
	return tokens, nil
}

// Logout revokes the family of the presented refresh token. Revoking an
// already revoked or rotated family is not an error.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	s.logger.Info("👋 [AuthService] Logout attempt")

	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return err
	}

	record, err := s.tokenRepo.FindByJTI(ctx, claims.JTI)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			s.logger.Warn("⚠️ [AuthService] Token not found for logout")
			return ErrInvalidToken
		}
		return err
	}
	if !token.CompareSecret(refreshToken, record.SecretHash) {
		return ErrInvalidToken
	}

	if err := s.engine.Revoker.RevokeFamily(ctx, record.TokenFamily, record.UserID); err != nil {
		return err
	}

	s.logger.Info("✅ [AuthService] User logged out successfully", "user_id", record.UserID)
	return nil
}

func (s *authService) LogoutAll(ctx context.Context, userID uint) error {
	s.logger.Info("👋 [AuthService] Logout from all sessions", "user_id", userID)
	return s.engine.Revoker.RevokeAllForUser(ctx, userID)
}

func (s *authService) ListSessions(ctx context.Context, userID uint) ([]Session, error) {
	records, err := s.tokenRepo.ListActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, Session{
			TokenFamily: rec.TokenFamily,
			IPAddress:   rec.IPAddress,
			UserAgent:   rec.UserAgent,
			LastRotated: rec.CreatedAt,
			ExpiresAt:   rec.ExpiresAt,
		})
	}
	return sessions, nil
}

func (s *authService) ValidateAccessToken(ctx context.Context, tokenString string) (*token.Claims, error) {
	claims, err := s.signer.VerifyAccess(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if s.revoked != nil && claims.TokenFamily != "" {
		revoked, err := s.revoked.IsFamilyRevoked(ctx, claims.TokenFamily)
		if err != nil {
			s.logger.Warn("⚠️ [AuthService] Revocation cache unavailable", "error", err)
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

func (s *authService) issueFor(ctx context.Context, user *models.User, meta ClientMeta) (*TokenPair, error) {
	return s.engine.Issuer.Issue(ctx, IssueRequest{
		UserID:    user.ID,
		Claims:    identityOf(user),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
}

func (s *authService) verifyRefresh(refreshToken string) (*token.Claims, error) {
	claims, err := s.signer.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		s.logger.Warn("⚠️ [AuthService] Unverifiable refresh token", "error", err)
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func identityOf(user *models.User) IdentityClaims {
	return IdentityClaims{Email: user.Email, Role: user.Role}
}
