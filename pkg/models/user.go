package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated principal. Records are owned by the user who created them.
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	FullName  *string   `db:"full_name"  json:"full_name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName is the name shown for the user and written as the assignee of records
// they submit: full name, falling back to email, falling back to "User".
func (u *User) DisplayName() string {
	if u == nil {
		return "User"
	}
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	if u.Email != "" {
		return u.Email
	}
	return "User"
}
