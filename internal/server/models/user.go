package models

import "time"

// User is an account of the built-in identity provider.
type User struct {
	ID           string
	Email        string
	Salt         []byte
	PasswordHash []byte
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
}

// Confirmed reports whether the account finished e-mail confirmation.
func (u *User) Confirmed() bool {
	return u.ConfirmedAt != nil
}
