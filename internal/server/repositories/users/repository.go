// Package users persists registered accounts and enforces username
// uniqueness at insert time.
package users

import (
	"context"

	"expense-api/internal/server/models"
)

type Repository interface {
	// Create inserts a new user. A username collision yields
	// common.ErrorAlreadyExists; the insert is atomic either way.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns the stored user or common.ErrorNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
