package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	// Find returns common.ErrorNotFound for unknown tokens; expiry is left to the caller.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired purges every token whose expiry lies before now.
	DeleteExpired(ctx context.Context) (int64, error)
}
