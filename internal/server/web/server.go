// Package web is the HTTP surface of notekeeper: server-rendered pages, the
// JSON API and the auth callback, all behind the request gate.
package web

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/gate"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"
)

const shutdownTimeout = 10 * time.Second

// IdentityProvider is the slice of the identity service the handlers use.
type IdentityProvider interface {
	Resolve(ctx context.Context, creds services.Credentials) (services.Resolution, error)
	SignUp(ctx context.Context, email, password string) (*services.SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*services.TokenPair, error)
	ExchangeCode(ctx context.Context, code string) (*services.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) error
	SessionCookies(pair *services.TokenPair) []*http.Cookie
	ClearSessionCookies() []*http.Cookie
}

// NoteStore is the caller-scoped note access the pages and API use.
type NoteStore interface {
	List(ctx context.Context, query string) ([]*models.Note, error)
	Get(ctx context.Context, id string) (*models.Note, error)
	Create(ctx context.Context, title, content *string) (*models.Note, error)
	Update(ctx context.Context, id string, title, content *string) (*models.Note, error)
	Delete(ctx context.Context, id string) (string, error)
}

// Summaries produces a summary of one of the caller's notes.
type Summaries interface {
	Summarize(ctx context.Context, noteID string) (string, error)
}

// Exporter uploads the caller's notes and returns where to fetch them.
type Exporter interface {
	Export(ctx context.Context) (*services.ExportResult, error)
}

type HTTPServer struct {
	address   string
	appName   string
	logger    logging.Logger
	identity  IdentityProvider
	notes     NoteStore
	summaries Summaries
	exporter  Exporter
	pages     *template.Template
	markdown  goldmark.Markdown
}

func NewHTTPServer(a, appName string, l logging.Logger, id IdentityProvider, ns NoteStore, ss Summaries, ex Exporter) (*HTTPServer, error) {
	s := &HTTPServer{
		address:   a,
		appName:   appName,
		logger:    l.With("module", "http_server"),
		identity:  id,
		notes:     ns,
		summaries: ss,
		exporter:  ex,
		markdown:  goldmark.New(),
	}

	pages, err := s.parseTemplates()
	if err != nil {
		return nil, err
	}
	s.pages = pages

	return s, nil
}

// Handler assembles the router. The gate sees every request, including
// ones that end up unrouted.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(s.gate)

	r.Get(gate.HealthPath, s.handleHealthz)
	r.Handle("/static/*", staticHandler())

	r.Get("/", s.handleLanding)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/signup", s.handleSignupPage)
	r.Post("/signup", s.handleSignup)
	r.Post("/logout", s.handleLogout)
	r.Get("/auth/callback", s.handleAuthCallback)

	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", s.handleDashboard)
		r.Post("/notes", s.handleDashboardCreate)
		r.Post("/notes/{id}", s.handleDashboardUpdate)
		r.Post("/notes/{id}/delete", s.handleDashboardDelete)
		r.Post("/notes/{id}/summarize", s.handleDashboardSummarize)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/notes", s.handleListNotes)
		r.Post("/notes", s.handleCreateNote)
		r.Post("/notes/export", s.handleExportNotes)
		r.Get("/notes/{id}", s.handleGetNote)
		r.Patch("/notes/{id}", s.handleUpdateNote)
		r.Delete("/notes/{id}", s.handleDeleteNote)
		r.Post("/summarize", s.handleSummarize)
	})

	r.NotFound(s.handleNotFound)

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
