package authcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, code *models.AuthCode) error {
	query := `
		INSERT INTO auth_codes (code, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, code.Code, code.UserID, code.Expires); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, code string) (*models.AuthCode, error) {
	query := `
		DELETE FROM auth_codes
		WHERE code = $1
		RETURNING user_id, expires_at
	`
	ac := &models.AuthCode{Code: code}
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&ac.UserID, &ac.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ac, nil
}
