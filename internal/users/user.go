// Package users manages application user accounts and their settings.
package users

import (
	"time"
)

// Role determines what a user may administer.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a persisted application user account.
type User struct {
	ID           string    `json:"_docID,omitempty"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	LastLogin    time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Settings     Settings  `json:"settings"`
}

// Settings are per-user overrides applied when submitting generation jobs.
type Settings struct {
	// CanGeneratePDF gates access to job submission.
	CanGeneratePDF bool `json:"can_generate_pdf"`
	// WikiAPIURL overrides the configured PDF service base URL.
	WikiAPIURL string `json:"wiki_api_url,omitempty"`
	// WikiAPIKey overrides the configured PDF service API key.
	WikiAPIKey string `json:"wiki_api_key,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
