// Package generate drives the PDF generation lifecycle: submitting jobs
// to the external PDF service, polling their status, and reconciling the
// results into stored request records.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/requests"
)

// ErrVerificationFailed is returned when a submitted task cannot be
// confirmed with an immediate status check. The external service
// occasionally accepts a job and then loses it; verifying up front keeps
// such jobs out of the record store.
var ErrVerificationFailed = errors.New("task verification failed after submission")

// SubmitInput describes one generation request.
type SubmitInput struct {
	// Pages are wiki article titles, one book chapter each.
	Pages []string
	// BookTitle names the finished book. May be empty.
	BookTitle string
	// SourceURL is the wiki base URL articles are fetched from.
	SourceURL string
	// IsPublic makes the finished book visible to everyone.
	IsPublic bool
	// Owner identifies the requesting user.
	Owner string
}

// Submitter submits generation jobs and persists their records.
type Submitter struct {
	pdf     *pdfapi.Client
	records *requests.Manager
	logger  *slog.Logger
}

// NewSubmitter creates a submitter.
func NewSubmitter(pdf *pdfapi.Client, records *requests.Manager, logger *slog.Logger) *Submitter {
	return &Submitter{
		pdf:     pdf,
		records: records,
		logger:  logger.With("component", "submitter"),
	}
}

// Submit sends one generation job to the PDF service, verifies it was
// accepted, and persists a pending record. Exactly one external job is
// created per successful call; the POST is never retried. Emptiness is
// left to the external service to reject.
func (s *Submitter) Submit(ctx context.Context, in SubmitInput) (*requests.Record, error) {
	pages := normalizePages(in.Pages)

	taskID, err := s.pdf.Generate(ctx, pdfapi.GenerateRequest{
		WikiPages: pages,
		BookTitle: in.BookTitle,
		BaseURL:   in.SourceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("submitting generation job: %w", err)
	}

	s.logger.Info("generation job submitted", "task_id", taskID, "pages", len(pages))

	// Verify the task is actually queryable before recording it.
	if _, err := s.pdf.Status(ctx, taskID); err != nil {
		s.logger.Warn("submitted task failed verification", "task_id", taskID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	rec := requests.NewRecord(taskID, in.BookTitle, pages, in.IsPublic, in.Owner)
	if _, err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting request record: %w", err)
	}

	return rec, nil
}

// normalizePages trims each page title and drops empty lines.
func normalizePages(pages []string) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
