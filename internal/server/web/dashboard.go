package web

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
	"github.com/dmitrijs2005/notekeeper/internal/server/summarizer"
	"github.com/go-chi/chi/v5"
)

const (
	msgDashboardLoad      = "Could not load your notes."
	msgDashboardSave      = "Could not save the note."
	msgDashboardDelete    = "Could not delete the note."
	msgUsageLimitFriendly = "AI service usage limit reached. The summarization feature is temporarily unavailable."
)

// optionalField returns nil when the form did not carry the field at all.
func optionalField(r *http.Request, name string) *string {
	if _, ok := r.PostForm[name]; !ok {
		return nil
	}
	v := r.PostForm.Get(name)
	return &v
}

func (s *HTTPServer) dashboardPage(r *http.Request) *page {
	p := s.newPage(r, "Your notes")
	p.Query = r.URL.Query().Get("q")

	notes, err := s.notes.List(r.Context(), p.Query)
	if err != nil {
		s.logger.Error(r.Context(), "dashboard list", "error", err)
		p.Error = msgDashboardLoad
		return p
	}
	p.Notes = notes
	return p
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "dashboard.html", s.dashboardPage(r))
}

func (s *HTTPServer) handleDashboardCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := s.notes.Create(r.Context(), optionalField(r, "title"), optionalField(r, "content")); err != nil {
		s.logger.Error(r.Context(), "dashboard create", "error", err)
		p := s.dashboardPage(r)
		p.Error = msgDashboardSave
		s.render(w, r, http.StatusInternalServerError, "dashboard.html", p)
		return
	}
	http.Redirect(w, r, common.DashboardPath, http.StatusSeeOther)
}

func (s *HTTPServer) handleDashboardUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	_, err := s.notes.Update(r.Context(), chi.URLParam(r, "id"), optionalField(r, "title"), optionalField(r, "content"))
	if err != nil {
		s.dashboardFailure(w, r, err, msgDashboardSave)
		return
	}
	http.Redirect(w, r, common.DashboardPath, http.StatusSeeOther)
}

func (s *HTTPServer) handleDashboardDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := s.notes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.dashboardFailure(w, r, err, msgDashboardDelete)
		return
	}
	http.Redirect(w, r, common.DashboardPath, http.StatusSeeOther)
}

// handleDashboardSummarize renders the dashboard with the summary, or the
// reason there is none, next to the note.
func (s *HTTPServer) handleDashboardSummarize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result := &noteSummary{NoteID: id}

	text, err := s.summaries.Summarize(r.Context(), id)
	var backendErr *summarizer.Error
	switch {
	case err == nil:
		result.Text = text
	case errors.Is(err, summarizer.ErrUsageLimit):
		result.Error = msgUsageLimitFriendly
	case errors.As(err, &backendErr):
		result.Error = backendErr.Message
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorValidation):
		result.Error = msgNoteNotFound
	case errors.Is(err, services.ErrNoteUnavailable):
		result.Error = "Failed to fetch note content"
	case errors.Is(err, summarizer.ErrNotConfigured):
		result.Error = summarizer.ErrNotConfigured.Error()
	default:
		s.logger.Error(r.Context(), "dashboard summarize", "error", err)
		result.Error = msgSummarizeUnexpected
	}

	p := s.dashboardPage(r)
	p.Summary = result
	s.render(w, r, http.StatusOK, "dashboard.html", p)
}

func (s *HTTPServer) dashboardFailure(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorValidation):
		status = http.StatusNotFound
		msg = msgNoteNotFound
	default:
		s.logger.Error(r.Context(), "dashboard action", "error", err)
	}
	p := s.dashboardPage(r)
	p.Error = msg
	s.render(w, r, status, "dashboard.html", p)
}
