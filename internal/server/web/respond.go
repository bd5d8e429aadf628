package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

const (
	msgUnauthorized        = "Unauthorized"
	msgInvalidInput        = "Invalid input"
	msgNoteNotFound        = "Note not found or access denied"
	msgInternal            = "Internal server error"
	msgExportsDisabled     = "Note export is not configured"
	msgSummarizeUnexpected = "An unexpected error occurred during summarization."
)

type errorBody struct {
	Error   string        `json:"error"`
	Details []issueDetail `json:"details,omitempty"`
}

// issueDetail describes one rejected input field.
type issueDetail struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func invalidInput(w http.ResponseWriter, field, message string) {
	path := []string{}
	if field != "" {
		path = append(path, field)
	}
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error:   msgInvalidInput,
		Details: []issueDetail{{Path: path, Message: message}},
	})
}

// validationMessage strips the sentinel prefix from a wrapped ErrorValidation.
func validationMessage(err error) string {
	msg := err.Error()
	prefix := common.ErrorValidation.Error() + ": "
	return strings.TrimPrefix(msg, prefix)
}

// writeServiceError maps note-layer errors to API responses without leaking
// internals. Unexpected errors are logged by the caller.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: msgUnauthorized})
	case errors.Is(err, common.ErrorValidation):
		invalidInput(w, "id", validationMessage(err))
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgNoteNotFound})
	case errors.Is(err, services.ErrExportsDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: msgExportsDisabled})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgInternal})
	}
}

func (s *HTTPServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
		return
	}
	s.render(w, r, http.StatusNotFound, "notfound.html", s.newPage(r, "Not found"))
}
