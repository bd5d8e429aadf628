// Package common defines shared constants and sentinel errors used across
// the notekeeper server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrorUnauthenticated means no session resolved for the caller.
	ErrorUnauthenticated = errors.New("unauthenticated")
	// ErrorUnauthorized means the credentials were presented but rejected.
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors.
	ErrorValidation        = errors.New("validation error")
	ErrorEmailNotConfirmed = errors.New("email not confirmed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrAuthCodeExpired     = errors.New("auth code expired")
)
