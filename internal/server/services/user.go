// Package services contains server-side business logic. This file implements
// UserService, which handles registration and login plus issuing the stateless
// access token. There is no server-side revocation: a token stays valid until
// its expiry regardless of later account changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expense-api/internal/common"
	"expense-api/internal/server/auth"
	"expense-api/internal/server/config"
	"expense-api/internal/server/models"
	"expense-api/internal/server/repositories/repomanager"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint an access token
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register validates the credentials, hashes the password, and creates the
// user. A taken username surfaces as common.ErrorAlreadyExists; the stored
// record of the first registrant is left untouched.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if len(username) < minUsernameLen {
		return nil, fmt.Errorf("%w: username must be at least %d characters", common.ErrorValidation, minUsernameLen)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLen)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{Username: username, PasswordHash: hash}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the provided password against the stored digest and, on
// success, returns a new access token. Unknown usernames and bad passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.Username, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}

	return token, nil
}
