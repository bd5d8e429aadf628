package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

const noteColumns = `id, user_id, title, content, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (*models.Note, error) {
	n := &models.Note{}
	var title, content sql.NullString
	if err := s.Scan(&n.ID, &n.UserID, &title, &content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if title.Valid {
		n.Title = &title.String
	}
	if content.Valid {
		n.Content = &content.String
	}
	return n, nil
}

// likePattern escapes LIKE metacharacters so the query matches literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func (r *PostgresRepository) List(ctx context.Context, userID string, query string) ([]*models.Note, error) {

	var (
		rows *sql.Rows
		err  error
	)

	if query == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+noteColumns+` FROM notes
			 WHERE user_id = $1
			 ORDER BY created_at DESC`, userID)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+noteColumns+` FROM notes
			 WHERE user_id = $1 AND (title ILIKE $2 OR content ILIKE $2)
			 ORDER BY created_at DESC`, userID, likePattern(query))
	}

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, id string) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE id = $1 AND user_id = $2`, id, userID)

	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, userID string, title string, content string) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO notes (user_id, title, content)
		 VALUES ($1, $2, $3)
		 RETURNING `+noteColumns, userID, title, content)

	n, err := scanNote(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID string, id string, title *string, content *string) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE notes
		 SET title = COALESCE($3, title), content = COALESCE($4, content), updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+noteColumns, id, userID, title, content)

	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notes
		 WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return dbx.RowsAffected(res)
}
