package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/server/auth"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// page is the view model shared by every template.
type page struct {
	AppName        string
	Title          string
	Authenticated  bool
	Error          string
	Message        string
	Email          string
	RedirectedFrom string
	Query          string
	Notes          []*models.Note
	Summary        *noteSummary
}

// noteSummary is the inline result of a dashboard summarize action.
type noteSummary struct {
	NoteID string
	Text   string
	Error  string
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (s *HTTPServer) parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"markdown": s.renderMarkdown,
		"noteTitle": func(n *models.Note) string {
			return n.TitleOr(services.UntitledNote)
		},
		"noteContent": func(n *models.Note) string {
			return n.ContentOrEmpty()
		},
		"date": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
	}
	return template.New("pages").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
}

// renderMarkdown converts note content to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func (s *HTTPServer) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func (s *HTTPServer) newPage(r *http.Request, title string) *page {
	_, ok := auth.UserIDFromContext(r.Context())
	return &page{AppName: s.appName, Title: title, Authenticated: ok}
}

func (s *HTTPServer) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, p); err != nil {
		s.logger.Error(r.Context(), "render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "landing.html", s.newPage(r, s.appName))
}
