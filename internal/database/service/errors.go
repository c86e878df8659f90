package service

import "errors"

// Token lifecycle errors. Every one of them means the caller must re-authenticate;
// ErrReplayDetected additionally means every session of the family was terminated.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrReplayDetected     = errors.New("refresh token replay detected; all sessions revoked")
	ErrConcurrentRotation = errors.New("concurrent rotation of the same token")
)

// Session API errors
var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
