// Package notes persists user notes. Every statement is scoped by the owner's
// user id, so a caller can never see or touch another user's rows.
package notes

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	// List returns the owner's notes, newest created first. A non-empty query
	// keeps only notes whose title or content contains it, case-insensitively.
	List(ctx context.Context, userID string, query string) ([]*models.Note, error)
	Get(ctx context.Context, userID string, id string) (*models.Note, error)
	Create(ctx context.Context, userID string, title string, content string) (*models.Note, error)
	// Update replaces only the non-nil fields and bumps updated_at.
	Update(ctx context.Context, userID string, id string, title *string, content *string) (*models.Note, error)
	// Delete reports how many rows were removed (0 or 1).
	Delete(ctx context.Context, userID string, id string) (int64, error)
}
