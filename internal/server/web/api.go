package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
	"github.com/dmitrijs2005/notekeeper/internal/server/summarizer"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type noteInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type summarizeInput struct {
	NoteID *string `json:"noteId"`
}

type deleteOutput struct {
	ID string `json:"id"`
}

type summaryOutput struct {
	Summary string `json:"summary"`
}

// decodeBody reads a JSON object into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *HTTPServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.notes.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.logUnexpected(r, "list notes", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *HTTPServer) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logUnexpected(r, "get note", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *HTTPServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var in noteInput
	if err := decodeBody(w, r, &in); err != nil {
		invalidInput(w, "", "Request body must be a JSON object")
		return
	}

	note, err := s.notes.Create(r.Context(), in.Title, in.Content)
	if err != nil {
		s.logUnexpected(r, "create note", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *HTTPServer) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var in noteInput
	if err := decodeBody(w, r, &in); err != nil {
		invalidInput(w, "", "Request body must be a JSON object")
		return
	}

	note, err := s.notes.Update(r.Context(), chi.URLParam(r, "id"), in.Title, in.Content)
	if err != nil {
		s.logUnexpected(r, "update note", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *HTTPServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.notes.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logUnexpected(r, "delete note", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteOutput{ID: id})
}

func (s *HTTPServer) handleExportNotes(w http.ResponseWriter, r *http.Request) {
	res, err := s.exporter.Export(r.Context())
	if err != nil {
		s.logUnexpected(r, "export notes", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSummarize relays one owned note to the summarization backend.
func (s *HTTPServer) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var in summarizeInput
	if err := decodeBody(w, r, &in); err != nil {
		invalidInput(w, "", "Request body must be a JSON object")
		return
	}
	if in.NoteID == nil {
		invalidInput(w, "noteId", "Required")
		return
	}
	if err := services.ValidateNoteID(*in.NoteID); err != nil {
		invalidInput(w, "noteId", "Invalid uuid")
		return
	}

	summary, err := s.summaries.Summarize(r.Context(), *in.NoteID)
	if err == nil {
		writeJSON(w, http.StatusOK, summaryOutput{Summary: summary})
		return
	}

	var backendErr *summarizer.Error
	switch {
	case errors.Is(err, common.ErrorUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: msgUnauthorized})
	case errors.Is(err, common.ErrorValidation):
		invalidInput(w, "noteId", "Invalid uuid")
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgNoteNotFound})
	case errors.Is(err, services.ErrNoteUnavailable):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to fetch note content"})
	case errors.Is(err, summarizer.ErrNotConfigured):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: summarizer.ErrNotConfigured.Error()})
	case errors.As(err, &backendErr):
		writeJSON(w, backendErr.Status, errorBody{Error: backendErr.Message})
	default:
		s.logger.Error(r.Context(), "summarize", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgSummarizeUnexpected})
	}
}

func (s *HTTPServer) logUnexpected(r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthenticated),
		errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrorNotFound),
		errors.Is(err, services.ErrExportsDisabled):
		return
	}
	s.logger.Error(r.Context(), op, "error", err)
}
