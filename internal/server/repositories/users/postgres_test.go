package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertQuery = `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*salt,\s*password_hash,\s*confirmed_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow("42", created)
	mock.ExpectQuery(insertQuery).
		WithArgs("alice@example.com", []byte("salt"), []byte("hash"), nil).
		WillReturnRows(rows)

	u := &models.User{Email: "alice@example.com", Salt: []byte("salt"), PasswordHash: []byte("hash")}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "42" || got.Email != "alice@example.com" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

const selectQuery = `(?s)^SELECT\s+id,\s*email,\s*salt,\s*password_hash,\s*confirmed_at,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`

func TestGetUserByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	confirmed := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "email", "salt", "password_hash", "confirmed_at", "created_at"}).
		AddRow("u1", "bob@example.com", []byte("s"), []byte("h"), confirmed, confirmed)
	mock.ExpectQuery(selectQuery).WithArgs("bob@example.com").WillReturnRows(rows)

	u, err := repo.GetUserByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || !u.Confirmed() || string(u.PasswordHash) != "h" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestGetUserByEmail_Unconfirmed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "email", "salt", "password_hash", "confirmed_at", "created_at"}).
		AddRow("u1", "bob@example.com", []byte("s"), []byte("h"), nil, time.Now())
	mock.ExpectQuery(selectQuery).WithArgs("bob@example.com").WillReturnRows(rows)

	u, err := repo.GetUserByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Confirmed() {
		t.Fatal("user must not be confirmed")
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).WithArgs("nobody@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+confirmed_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+confirmed_at\s+IS\s+NULL\s*$`
	mock.ExpectExec(q).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u1").WillReturnError(errors.New("db down"))

	if err := repo.Confirm(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Confirm(context.Background(), "u1"); err == nil {
		t.Fatal("expected error")
	}
}
