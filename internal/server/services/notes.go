package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/auth"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const UntitledNote = "Untitled Note"

// NoteService is the note access layer. Every operation acts on behalf of the
// user id the request gate placed in the context and fails with
// common.ErrorUnauthenticated when there is none.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

// NewNoteService builds the note access layer over db. Repositories are
// taken from m per call.
func NewNoteService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *NoteService {
	return &NoteService{db: db, repomanager: m, log: log.With("module", "notes")}
}

func callerID(ctx context.Context) (string, error) {
	id, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", common.ErrorUnauthenticated
	}
	return id, nil
}

// ValidateNoteID accepts only the canonical 36-character hyphenated UUID
// form. uuid.Parse also takes urn:uuid:, braced and bare-hex spellings,
// which the store does not.
func ValidateNoteID(id string) error {
	if len(id) != 36 {
		return fmt.Errorf("%w: note id must be a UUID", common.ErrorValidation)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: note id must be a UUID", common.ErrorValidation)
	}
	return nil
}

// List returns the caller's notes, most recently created first. A non-empty query keeps
// notes whose title or content contains it, case-insensitively.
func (s *NoteService) List(ctx context.Context, query string) ([]*models.Note, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	notes, err := s.repomanager.Notes(s.db).List(ctx, userID, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("error listing notes: %w", err)
	}
	return notes, nil
}

// Get returns one of the caller's notes. Absent and foreign notes are both
// common.ErrorNotFound.
func (s *NoteService) Get(ctx context.Context, id string) (*models.Note, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateNoteID(id); err != nil {
		return nil, err
	}

	note, err := s.repomanager.Notes(s.db).Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error fetching note: %w", err)
	}
	return note, nil
}

// Create stores a note owned by the caller. A blank title becomes
// "Untitled Note" and a missing content becomes "".
func (s *NoteService) Create(ctx context.Context, title, content *string) (*models.Note, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	t := UntitledNote
	if title != nil && strings.TrimSpace(*title) != "" {
		t = *title
	}
	c := ""
	if content != nil {
		c = *content
	}

	note, err := s.repomanager.Notes(s.db).Create(ctx, userID, t, c)
	if err != nil {
		return nil, fmt.Errorf("error creating note: %w", err)
	}

	s.log.Info(ctx, "note created", "user_id", userID, "note_id", note.ID)
	return note, nil
}

// Update replaces the supplied fields of an owned note.
func (s *NoteService) Update(ctx context.Context, id string, title, content *string) (*models.Note, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateNoteID(id); err != nil {
		return nil, err
	}

	note, err := s.repomanager.Notes(s.db).Update(ctx, userID, id, title, content)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error updating note: %w", err)
	}
	return note, nil
}

// Delete removes an owned note and echoes its id. Deleting a note that is
// absent or not owned affects nothing and is not an error.
func (s *NoteService) Delete(ctx context.Context, id string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	if err := ValidateNoteID(id); err != nil {
		return "", err
	}

	n, err := s.repomanager.Notes(s.db).Delete(ctx, userID, id)
	if err != nil {
		return "", fmt.Errorf("error deleting note: %w", err)
	}
	if n == 0 {
		s.log.Debug(ctx, "delete matched no rows", "user_id", userID, "note_id", id)
	}
	return id, nil
}
