package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
)

// IdentityClaims are the caller-supplied claims embedded in both credentials
type IdentityClaims struct {
	Email string
	Role  string
}

// IssueRequest starts a new session lineage for a user
type IssueRequest struct {
	UserID    uint
	Claims    IdentityClaims
	IPAddress string
	UserAgent string
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	JTI          string
	TokenFamily  string
}

// TokenIssuer creates brand-new sessions (new token family) on login and registration
type TokenIssuer struct {
	store  repository.RefreshTokenRepository
	ids    token.IdentifierGenerator
	signer token.CredentialSigner
	logger *slog.Logger
	now    Clock
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(
	store repository.RefreshTokenRepository,
	ids token.IdentifierGenerator,
	signer token.CredentialSigner,
	logger *slog.Logger,
	opts ...Option,
) *TokenIssuer {
	o := buildOptions(opts)
	return &TokenIssuer{
		store:  store,
		ids:    ids,
		signer: signer,
		logger: logger,
		now:    o.now,
	}
}

// Issue generates a fresh jti and token family, signs both credentials and
// persists the refresh record.
func (i *TokenIssuer) Issue(ctx context.Context, req IssueRequest) (*TokenPair, error) {
	jti, err := i.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate jti: %w", err)
	}
	family, err := i.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate token family: %w", err)
	}

	pair, err := signPair(i.ids, i.signer, req.UserID, req.Claims, jti, family)
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		JTI:         jti,
		TokenFamily: family,
		SecretHash:  token.HashSecret(pair.RefreshToken),
		UserID:      req.UserID,
		ExpiresAt:   i.now().Add(i.signer.RefreshTTL()),
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		CreatedAt:   i.now(),
	}
	if err := i.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	i.logger.Debug("🎟️ [TokenIssuer] New token family issued",
		"user_id", req.UserID,
		"token_family", family,
	)

	return pair, nil
}

// signPair signs an access credential (with its own jti) and a refresh
// credential carrying refreshJTI, both bound to family.
func signPair(
	ids token.IdentifierGenerator,
	signer token.CredentialSigner,
	userID uint,
	identity IdentityClaims,
	refreshJTI, family string,
) (*TokenPair, error) {
	accessJTI, err := ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate access jti: %w", err)
	}

	claims := token.Claims{
		Subject:     token.SubjectFor(userID),
		Email:       identity.Email,
		Role:        identity.Role,
		TokenFamily: family,
	}

	accessClaims := claims
	accessClaims.JTI = accessJTI
	accessToken, err := signer.SignAccess(accessClaims)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshClaims := claims
	refreshClaims.JTI = refreshJTI
	refreshToken, err := signer.SignRefresh(refreshClaims)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(signer.AccessTTL().Seconds()),
		JTI:          refreshJTI,
		TokenFamily:  family,
	}, nil
}
