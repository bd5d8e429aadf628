package models

import "time"

// AuthCode is a one-time code exchanged at the auth callback for a session.
type AuthCode struct {
	Code    string
	UserID  string
	Expires time.Time
}
