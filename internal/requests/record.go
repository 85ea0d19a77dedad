// Package requests persists book request records in the record database.
package requests

import (
	"time"
)

// Status represents the lifecycle state of a book request.
// Transitions only move forward; Completed and Failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Record is a persisted book request. The record database issues ID at
// creation; TaskID is the identifier the external PDF API issued and is
// used for all status/download/delete calls against it.
type Record struct {
	ID        string    `json:"_docID,omitempty"`
	TaskID    string    `json:"original_task_id"`
	BookTitle string    `json:"book_title"`
	Pages     []string  `json:"pages"`
	Status    Status    `json:"status"`
	IsPublic  bool      `json:"is_public"`
	PDFURL    string    `json:"pdf_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewRecord creates a record for a freshly submitted job.
func NewRecord(taskID, bookTitle string, pages []string, isPublic bool, owner string) *Record {
	return &Record{
		TaskID:    taskID,
		BookTitle: bookTitle,
		Pages:     pages,
		Status:    StatusPending,
		IsPublic:  isPublic,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
	}
}

// VisibleTo reports whether user (an owner identity string) may see this
// record. Admins see everything.
func (r *Record) VisibleTo(user string, isAdmin bool) bool {
	return isAdmin || r.IsPublic || r.Owner == user
}
