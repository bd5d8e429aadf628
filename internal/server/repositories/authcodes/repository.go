// Package authcodes stores the one-time codes redeemed at /auth/callback.
package authcodes

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code *models.AuthCode) error
	// Consume deletes the code and returns the row it held, so a code can be
	// redeemed at most once. Unknown codes yield common.ErrorNotFound.
	Consume(ctx context.Context, code string) (*models.AuthCode, error)
}
