package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/authcodes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFactories_ReturnPostgresRepos(t *testing.T) {
	db := newDB(t)
	m := NewPostgresRepositoryManager()

	assert.IsType(t, &users.PostgresRepository{}, m.Users(db))
	assert.IsType(t, &refreshtokens.PostgresRepository{}, m.RefreshTokens(db))
	assert.IsType(t, &authcodes.PostgresRepository{}, m.AuthCodes(db))
	assert.IsType(t, &notes.PostgresRepository{}, m.Notes(db))
}

func TestRunMigrations_Success(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}

	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)
}

func TestRunMigrations_Error(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	assert.EqualError(t, err, "boom")
}
