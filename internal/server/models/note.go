package models

import "time"

// Note is the persisted text unit owned by exactly one user.
// Title and Content are nullable in storage.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TitleOr returns the title, or fallback when it is nil or empty.
func (n *Note) TitleOr(fallback string) string {
	if n.Title == nil || *n.Title == "" {
		return fallback
	}
	return *n.Title
}

// ContentOrEmpty returns the content, or "" when it is nil.
func (n *Note) ContentOrEmpty() string {
	if n.Content == nil {
		return ""
	}
	return *n.Content
}
