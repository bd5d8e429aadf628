package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/summarizer"
)

const EmptyNoteSummary = "Note content is empty, nothing to summarize."

// ErrNoteUnavailable means the store failed while fetching the note to summarize.
var ErrNoteUnavailable = errors.New("failed to fetch note content")

// SummaryService relays an owned note to the summarization backend. A nil
// backend means summarization is not configured.
type SummaryService struct {
	notes   *NoteService
	backend summarizer.Summarizer
	log     logging.Logger
}

func NewSummaryService(notes *NoteService, backend summarizer.Summarizer, log logging.Logger) *SummaryService {
	return &SummaryService{notes: notes, backend: backend, log: log.With("module", "summary")}
}

// Summarize returns the summary of the caller's note noteID. Each call
// reaches the backend at most once and nothing is cached.
func (s *SummaryService) Summarize(ctx context.Context, noteID string) (string, error) {
	note, err := s.notes.Get(ctx, noteID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnauthenticated),
			errors.Is(err, common.ErrorValidation),
			errors.Is(err, common.ErrorNotFound):
			return "", err
		default:
			s.log.Error(ctx, "fetching note for summary failed", "note_id", noteID, "error", err)
			return "", ErrNoteUnavailable
		}
	}

	content := note.ContentOrEmpty()
	if strings.TrimSpace(content) == "" {
		return EmptyNoteSummary, nil
	}

	if s.backend == nil {
		s.log.Error(ctx, "summarization requested but no backend is configured")
		return "", summarizer.ErrNotConfigured
	}

	// A client that goes away does not abort a call that is already billed.
	return s.backend.Summarize(context.WithoutCancel(ctx), note.TitleOr(UntitledNote), content)
}
