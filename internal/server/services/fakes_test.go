package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/authcodes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
	"github.com/google/uuid"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard, "error")
}

// --- users ---

type fakeUsersRepo struct {
	mu         sync.Mutex
	byEmail    map[string]*models.User
	createErr  error
	getErr     error
	confirmErr error
	confirmed  []string
}

func newFakeUsersRepo(us ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byEmail: map[string]*models.User{}}
	for _, u := range us {
		r.byEmail[u.Email] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.ID = "user-" + u.Email
	u.CreatedAt = time.Now()
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) Confirm(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmed = append(f.confirmed, userID)
	return nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu        sync.Mutex
	tokens    map[string]*models.RefreshToken
	findErr   error
	delErr    error
	createErr error
	purged    int64
}

func newFakeRefreshRepo(ts ...*models.RefreshToken) *fakeRefreshRepo {
	r := &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
	for _, t := range ts {
		r.tokens[t.Token] = t
	}
	return r
}

func (f *fakeRefreshRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[t.Token] = t
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return f.purged, nil
}

func (f *fakeRefreshRepo) has(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[token]
	return ok
}

// --- auth codes ---

type fakeAuthCodesRepo struct {
	mu         sync.Mutex
	codes      map[string]*models.AuthCode
	createErr  error
	consumeErr error
}

func newFakeAuthCodesRepo(cs ...*models.AuthCode) *fakeAuthCodesRepo {
	r := &fakeAuthCodesRepo{codes: map[string]*models.AuthCode{}}
	for _, c := range cs {
		r.codes[c.Code] = c
	}
	return r
}

func (f *fakeAuthCodesRepo) Create(ctx context.Context, c *models.AuthCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.codes[c.Code] = c
	return nil
}

func (f *fakeAuthCodesRepo) Consume(ctx context.Context, code string) (*models.AuthCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	c, ok := f.codes[code]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.codes, code)
	return c, nil
}

// --- notes ---

type fakeNotesRepo struct {
	mu      sync.Mutex
	rows    []*models.Note
	err     error
	lastQ   string
	deleted []string
}

func (f *fakeNotesRepo) List(ctx context.Context, userID, q string) ([]*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = q
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.Note{}
	for i := len(f.rows) - 1; i >= 0; i-- {
		n := f.rows[i]
		if n.UserID != userID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.TitleOr("")+" "+n.ContentOrEmpty()), strings.ToLower(q)) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNotesRepo) Get(ctx context.Context, userID, id string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, n := range f.rows {
		if n.ID == id && n.UserID == userID {
			return n, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeNotesRepo) Create(ctx context.Context, userID, title, content string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now()
	n := &models.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     &title,
		Content:   &content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.rows = append(f.rows, n)
	return n, nil
}

func (f *fakeNotesRepo) Update(ctx context.Context, userID, id string, title, content *string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, n := range f.rows {
		if n.ID == id && n.UserID == userID {
			if title != nil {
				n.Title = title
			}
			if content != nil {
				n.Content = content
			}
			n.UpdatedAt = time.Now()
			return n, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeNotesRepo) Delete(ctx context.Context, userID, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	for i, n := range f.rows {
		if n.ID == id && n.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			f.deleted = append(f.deleted, id)
			return 1, nil
		}
	}
	return 0, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	a *fakeAuthCodesRepo
	n *fakeNotesRepo

	// authCodesDB is the handle the last AuthCodes call was bound to.
	authCodesDB dbx.DBTX
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		r: newFakeRefreshRepo(),
		a: newFakeAuthCodesRepo(),
		n: &fakeNotesRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) AuthCodes(db dbx.DBTX) authcodes.Repository {
	m.authCodesDB = db
	return m.a
}
func (m *fakeRepoManager) Notes(db dbx.DBTX) notes.Repository                 { return m.n }

// --- mailer ---

type recordingMailer struct {
	mu    sync.Mutex
	links map[string]string
	err   error
}

func (m *recordingMailer) SendConfirmation(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.links == nil {
		m.links = map[string]string{}
	}
	m.links[email] = link
	return nil
}
