// Package common defines shared constants and sentinel errors used across
// client and server layers of Quietpage. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal          = errors.New("internal error")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Key management errors. AEAD authentication failures are deliberately
	// indistinguishable from a wrong password: both surface as
	// ErrInvalidPassword so decryption is not usable as an oracle.
	ErrLocked              = errors.New("key material is locked")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrSetupFailed         = errors.New("keyring setup failed")
	ErrCorruptedWrappedKey = errors.New("wrapped key blob is corrupted")

	// Domain lookups. Entry lookups for rows the caller does not own resolve
	// to ErrEntryNotFound as well, so existence is never leaked.
	ErrEntryNotFound         = errors.New("entry not found")
	ErrGoalNotFound          = errors.New("goal not found")
	ErrPromptNotFound        = errors.New("prompt not found")
	ErrKeyNotFound           = errors.New("public key not found")
	ErrProfessionalNotLinked = errors.New("professional not linked")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Client-side cache errors.
	ErrLocalDataNotAvailable = errors.New("local data not available")
)
