package service

import (
	"log/slog"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
)

// Engine groups the refresh-token lifecycle components sharing one store
type Engine struct {
	Issuer    *TokenIssuer
	Validator *TokenValidator
	Rotator   *TokenRotator
	Revoker   *FamilyRevoker
}

// NewEngine wires the lifecycle components. cache may be nil.
func NewEngine(
	store repository.RefreshTokenRepository,
	ids token.IdentifierGenerator,
	signer token.CredentialSigner,
	cache RevocationCache,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	revoker := NewFamilyRevoker(store, cache, logger)
	return &Engine{
		Issuer:    NewTokenIssuer(store, ids, signer, logger, opts...),
		Validator: NewTokenValidator(store, revoker, logger, opts...),
		Rotator:   NewTokenRotator(store, logger, opts...),
		Revoker:   revoker,
	}
}
