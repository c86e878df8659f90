package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the payload carried by both access and refresh credentials
type Claims struct {
	Subject     string
	Email       string
	Role        string
	JTI         string
	TokenFamily string
	ExpiresAt   time.Time
}

// UserID parses Subject back into the numeric user id
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrMalformedToken, c.Subject)
	}
	return uint(id), nil
}

// SubjectFor encodes a user id as a token subject
func SubjectFor(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// CredentialSigner signs and verifies the short-lived access credential and
// the long-lived refresh credential with independent keys and lifetimes.
type CredentialSigner interface {
	SignAccess(claims Claims) (string, error)
	SignRefresh(claims Claims) (string, error)
	VerifyAccess(token string) (*Claims, error)
	VerifyRefresh(token string) (*Claims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// JWTConfig configures a JWTSigner
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type jwtClaims struct {
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	TokenFamily string `json:"tokenFamily,omitempty"`
	Type        string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTSigner is an HS256 CredentialSigner
type JWTSigner struct {
	cfg JWTConfig
	now func() time.Time
}

// NewJWTSigner validates cfg and returns a signer. Empty secrets are rejected.
func NewJWTSigner(cfg JWTConfig) (*JWTSigner, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access signing secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh signing secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &JWTSigner{cfg: cfg, now: time.Now}, nil
}

// WithClock overrides the signer's time source
func (s *JWTSigner) WithClock(now func() time.Time) *JWTSigner {
	s.now = now
	return s
}

func (s *JWTSigner) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *JWTSigner) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

func (s *JWTSigner) SignAccess(claims Claims) (string, error) {
	return s.sign(claims, TypeAccess, s.cfg.AccessTTL, s.cfg.AccessSecret)
}

func (s *JWTSigner) SignRefresh(claims Claims) (string, error) {
	return s.sign(claims, TypeRefresh, s.cfg.RefreshTTL, s.cfg.RefreshSecret)
}

func (s *JWTSigner) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, TypeAccess, s.cfg.AccessSecret)
}

func (s *JWTSigner) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, TypeRefresh, s.cfg.RefreshSecret)
}

func (s *JWTSigner) sign(claims Claims, typ string, ttl time.Duration, secret []byte) (string, error) {
	if claims.JTI == "" {
		return "", fmt.Errorf("%w: missing jti", ErrMalformedToken)
	}

	now := s.now()
	payload := jwtClaims{
		Email:       claims.Email,
		Role:        claims.Role,
		TokenFamily: claims.TokenFamily,
		Type:        typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        claims.JTI,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString(secret)
}

func (s *JWTSigner) verify(tokenString, typ string, secret []byte) (*Claims, error) {
	var payload jwtClaims

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &payload, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !token.Valid || payload.Type != typ || payload.ID == "" {
		return nil, ErrMalformedToken
	}

	claims := &Claims{
		Subject:     payload.Subject,
		Email:       payload.Email,
		Role:        payload.Role,
		JTI:         payload.ID,
		TokenFamily: payload.TokenFamily,
	}
	if payload.ExpiresAt != nil {
		claims.ExpiresAt = payload.ExpiresAt.Time
	}
	return claims, nil
}

// Token errors
var (
	ErrMalformedToken = errors.New("malformed or unverifiable token")
	ErrExpiredToken   = errors.New("token signature expired")
)
