package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/auth"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	aliceID = "11111111-1111-1111-1111-111111111111"
	bobID   = "22222222-2222-2222-2222-222222222222"
)

var errBoom = errors.New("boom")

// fakeIdentity resolves sessions from two in-memory token tables.
// A known refresh token rotates into "rotated-access"/"rotated-refresh".
type fakeIdentity struct {
	mu           sync.Mutex
	sessions     map[string]string
	refresh      map[string]string
	resolveErr   error
	resolveCalls int

	signIn    func(email, password string) (*services.TokenPair, error)
	signUp    func(email, password string) (*services.SignUpResult, error)
	exchange  func(code string) (*services.TokenPair, error)
	signedOut []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		sessions: map[string]string{"alice-access": aliceID, "bob-access": bobID},
		refresh:  map[string]string{"alice-refresh": aliceID},
	}
}

func (f *fakeIdentity) Resolve(_ context.Context, creds services.Credentials) (services.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++

	if f.resolveErr != nil {
		return services.Resolution{}, f.resolveErr
	}
	if id, ok := f.sessions[creds.AccessToken]; ok {
		return services.Resolution{UserID: id}, nil
	}
	if id, ok := f.refresh[creds.RefreshToken]; ok {
		delete(f.refresh, creds.RefreshToken)
		pair := &services.TokenPair{AccessToken: "rotated-access", RefreshToken: "rotated-refresh"}
		return services.Resolution{UserID: id, Cookies: f.SessionCookies(pair)}, nil
	}
	if creds.AccessToken != "" || creds.RefreshToken != "" {
		return services.Resolution{Cookies: f.ClearSessionCookies()}, nil
	}
	return services.Resolution{}, nil
}

func (f *fakeIdentity) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveCalls
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password string) (*services.SignUpResult, error) {
	return f.signUp(email, password)
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*services.TokenPair, error) {
	return f.signIn(email, password)
}

func (f *fakeIdentity) ExchangeCode(_ context.Context, code string) (*services.TokenPair, error) {
	return f.exchange(code)
}

func (f *fakeIdentity) SignOut(_ context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, refreshToken)
	return nil
}

func (f *fakeIdentity) SessionCookies(pair *services.TokenPair) []*http.Cookie {
	return []*http.Cookie{
		{Name: common.AccessTokenCookieName, Value: pair.AccessToken, Path: "/", HttpOnly: true},
		{Name: common.RefreshTokenCookieName, Value: pair.RefreshToken, Path: "/", HttpOnly: true},
	}
}

func (f *fakeIdentity) ClearSessionCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: common.AccessTokenCookieName, Value: "", Path: "/", MaxAge: -1},
		{Name: common.RefreshTokenCookieName, Value: "", Path: "/", MaxAge: -1},
	}
}

// fakeNotes is an owner-scoped in-memory note store.
type fakeNotes struct {
	mu        sync.Mutex
	rows      map[string]*models.Note
	listErr   error
	panics    bool
	lastQuery string
}

func newFakeNotes() *fakeNotes {
	return &fakeNotes{rows: map[string]*models.Note{}}
}

func (f *fakeNotes) seed(owner, title, content string, created time.Time) *models.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := &models.Note{
		ID:        uuid.NewString(),
		UserID:    owner,
		Title:     &title,
		Content:   &content,
		CreatedAt: created,
		UpdatedAt: created,
	}
	f.rows[n.ID] = n
	return n
}

func (f *fakeNotes) owner(ctx context.Context) (string, error) {
	id, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", common.ErrorUnauthenticated
	}
	return id, nil
}

func (f *fakeNotes) List(ctx context.Context, query string) ([]*models.Note, error) {
	if f.panics {
		panic("list exploded")
	}
	owner, err := f.owner(ctx)
	if err != nil {
		return nil, err
	}
	if f.listErr != nil {
		return nil, f.listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = query

	var out []*models.Note
	for _, n := range f.rows {
		if n.UserID != owner {
			continue
		}
		if query != "" && !strings.Contains(n.TitleOr("")+n.ContentOrEmpty(), query) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeNotes) Get(ctx context.Context, id string) (*models.Note, error) {
	owner, err := f.owner(ctx)
	if err != nil {
		return nil, err
	}
	if err := services.ValidateNoteID(id); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.rows[id]
	if !ok || n.UserID != owner {
		return nil, common.ErrorNotFound
	}
	return n, nil
}

func (f *fakeNotes) Create(ctx context.Context, title, content *string) (*models.Note, error) {
	owner, err := f.owner(ctx)
	if err != nil {
		return nil, err
	}
	t := services.UntitledNote
	if title != nil && strings.TrimSpace(*title) != "" {
		t = *title
	}
	c := ""
	if content != nil {
		c = *content
	}
	return f.seed(owner, t, c, time.Now()), nil
}

func (f *fakeNotes) Update(ctx context.Context, id string, title, content *string) (*models.Note, error) {
	n, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if title != nil {
		n.Title = title
	}
	if content != nil {
		n.Content = content
	}
	n.UpdatedAt = time.Now()
	return n, nil
}

func (f *fakeNotes) Delete(ctx context.Context, id string) (string, error) {
	owner, err := f.owner(ctx)
	if err != nil {
		return "", err
	}
	if err := services.ValidateNoteID(id); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.rows[id]; ok && n.UserID == owner {
		delete(f.rows, id)
	}
	return id, nil
}

func (f *fakeNotes) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeSummaries struct {
	summary string
	err     error
	panics  bool
	calls   []string
}

func (f *fakeSummaries) Summarize(_ context.Context, noteID string) (string, error) {
	if f.panics {
		panic("summarizer exploded")
	}
	f.calls = append(f.calls, noteID)
	return f.summary, f.err
}

type fakeExporter struct {
	res *services.ExportResult
	err error
}

func (f *fakeExporter) Export(ctx context.Context) (*services.ExportResult, error) {
	if _, ok := auth.UserIDFromContext(ctx); !ok {
		return nil, common.ErrorUnauthenticated
	}
	return f.res, f.err
}

type testEnv struct {
	identity  *fakeIdentity
	notes     *fakeNotes
	summaries *fakeSummaries
	exporter  *fakeExporter
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		identity:  newFakeIdentity(),
		notes:     newFakeNotes(),
		summaries: &fakeSummaries{},
		exporter:  &fakeExporter{},
	}

	srv, err := NewHTTPServer("127.0.0.1:0", "Notekeeper", logging.NewJSONLogger(io.Discard, "error"),
		env.identity, env.notes, env.summaries, env.exporter)
	require.NoError(t, err)

	env.handler = srv.Handler()
	return env
}

type requestOption func(*http.Request)

func withSession(access string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: access})
	}
}

func withRefresh(refresh string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: refresh})
	}
}

func withJSON() requestOption {
	return func(r *http.Request) { r.Header.Set("Content-Type", "application/json") }
}

func (e *testEnv) do(method, target string, body io.Reader, opts ...requestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(target string, form url.Values, opts ...requestOption) *httptest.ResponseRecorder {
	opts = append([]requestOption{func(r *http.Request) {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}}, opts...)
	return e.do(http.MethodPost, target, strings.NewReader(form.Encode()), opts...)
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
