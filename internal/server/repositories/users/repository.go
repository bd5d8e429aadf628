// Package users declares and implements storage of identity-provider accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	// Create inserts a user and fills ID and CreatedAt. A taken e-mail yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// Confirm stamps confirmed_at once; confirming twice is a no-op.
	Confirm(ctx context.Context, userID string) error
}
