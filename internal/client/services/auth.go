// Package services contains application services for the Quietpage client.
// This file defines the authentication service: online/offline login,
// register, liveness probe, and housekeeping of local (offline) auth
// metadata. The login key derived here is independent of the master key: it
// exists only to prove identity to the server and never decrypts anything.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"

	"github.com/quietpage/quietpage/internal/client/repositories/metadata"
	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/dbx"
)

// AuthClient is the slice of the remote client the auth service needs.
type AuthClient interface {
	Register(ctx context.Context, username string, salt, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) error
	Logout()
	Ping(ctx context.Context) error
}

// AuthService authenticates the user against the server and keeps the
// minimal metadata (username, auth salt, verifier) needed to verify the
// password locally when the server is unreachable.
type AuthService struct {
	client AuthClient
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and
// local database.
func NewAuthService(client AuthClient, db *sql.DB) *AuthService {
	return &AuthService{client: client, db: db}
}

// Register creates a new account on the server. It generates a random auth
// salt, derives the login key from the provided password, computes its
// verifier, and sends salt/verifier to the server. The password itself never
// leaves this method.
func (a *AuthService) Register(ctx context.Context, username string, password []byte) error {
	salt := common.GenerateRandByteArray(cryptox.SaltSize)

	loginKey := cryptox.DeriveLoginKey(password, salt)
	defer common.WipeByteArray(loginKey)
	verifier := cryptox.MakeVerifier(loginKey)

	return a.client.Register(ctx, username, salt, verifier)
}

// OnlineLogin authenticates against the server and persists offline auth
// metadata (username, salt, verifier) in a single transaction.
func (a *AuthService) OnlineLogin(ctx context.Context, username string, password []byte) error {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	loginKey := cryptox.DeriveLoginKey(password, salt)
	defer common.WipeByteArray(loginKey)
	verifier := cryptox.MakeVerifier(loginKey)

	if err := a.client.Login(ctx, username, verifier); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.saveOfflineData(ctx, username, salt, verifier); err != nil {
		return fmt.Errorf("offline data saving error: %w", err)
	}
	return nil
}

// OfflineLogin verifies the password against locally cached auth metadata.
// It proves the password is right without the server; it does not produce a
// session, and journal content still requires the remote store. Missing local
// data returns common.ErrLocalDataNotAvailable; a wrong username or password
// returns common.ErrUnauthenticated.
func (a *AuthService) OfflineLogin(ctx context.Context, username string, password []byte) error {
	repo := metadata.NewSQLiteRepository(a.db)

	savedUsername, err := repo.Get(ctx, "username")
	if err != nil {
		return err
	}
	savedSalt, err := repo.Get(ctx, "salt")
	if err != nil {
		return err
	}
	savedVerifier, err := repo.Get(ctx, "verifier")
	if err != nil {
		return err
	}
	if savedUsername == nil || savedSalt == nil || savedVerifier == nil {
		return common.ErrLocalDataNotAvailable
	}
	if string(savedUsername) != username {
		return common.ErrUnauthenticated
	}

	loginKey := cryptox.DeriveLoginKey(password, savedSalt)
	defer common.WipeByteArray(loginKey)
	verifierCandidate := cryptox.MakeVerifier(loginKey)

	if subtle.ConstantTimeCompare(savedVerifier, verifierCandidate) == 0 {
		return common.ErrUnauthenticated
	}
	return nil
}

// saveOfflineData persists the metadata required for offline login in a
// single transaction.
func (a *AuthService) saveOfflineData(ctx context.Context, username string, salt, verifier []byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, "username", []byte(username)); err != nil {
			return err
		}
		if err := repo.Set(ctx, "salt", salt); err != nil {
			return err
		}
		return repo.Set(ctx, "verifier", verifier)
	})
}

// Ping proxies a liveness check to the underlying client.
func (a *AuthService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Logout drops the remote token pair. Offline metadata is kept unless
// ClearOfflineData is called explicitly.
func (a *AuthService) Logout() {
	a.client.Logout()
}

// ClearOfflineData wipes locally cached auth metadata.
func (a *AuthService) ClearOfflineData(ctx context.Context) error {
	return metadata.NewSQLiteRepository(a.db).Clear(ctx)
}
