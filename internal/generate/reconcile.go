package generate

import (
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/requests"
)

// DefaultFailureMessage is recorded when the external service reports a
// failed job without an error message.
const DefaultFailureMessage = "PDF generation failed"

// URLBuilder constructs download URLs for finished books.
// *pdfapi.Client satisfies it.
type URLBuilder interface {
	DownloadURL(taskID, filename string) string
	FallbackDownloadURL(taskID string) string
}

// Change describes the record fields a reconciliation wants updated.
// Zero-valued fields are left untouched.
type Change struct {
	Status requests.Status
	PDFURL string
	Error  string
}

// Empty reports whether the change would update nothing.
func (c Change) Empty() bool {
	return c.Status == "" && c.PDFURL == "" && c.Error == ""
}

// Fields returns the change as a partial-update field map.
func (c Change) Fields() map[string]any {
	fields := make(map[string]any)
	if c.Status != "" {
		fields["status"] = string(c.Status)
	}
	if c.PDFURL != "" {
		fields["pdf_url"] = c.PDFURL
	}
	if c.Error != "" {
		fields["error"] = c.Error
	}
	return fields
}

// Apply mirrors the change onto an in-memory record.
func (c Change) Apply(rec *requests.Record) {
	if c.Status != "" {
		rec.Status = c.Status
	}
	if c.PDFURL != "" {
		rec.PDFURL = c.PDFURL
	}
	if c.Error != "" {
		rec.Error = c.Error
	}
}

// Reconcile compares a stored record against a fresh status report from
// the external service and returns the updates to persist. Both the
// poller and the list-refresh endpoint route through here so the two
// paths cannot drift apart.
func Reconcile(rec *requests.Record, st *pdfapi.StatusResponse, urls URLBuilder, fallbackTitle string) Change {
	var change Change
	external := requests.Status(st.Status)

	switch {
	case external == requests.StatusCompleted:
		if rec.Status != requests.StatusCompleted {
			change.Status = requests.StatusCompleted
		}
		if rec.PDFURL == "" {
			change.PDFURL = urls.DownloadURL(rec.TaskID, bookFilename(rec, fallbackTitle))
		}

	case external == requests.StatusFailed:
		if rec.Status != requests.StatusFailed {
			change.Status = requests.StatusFailed
			change.Error = st.Error
			if change.Error == "" {
				change.Error = DefaultFailureMessage
			}
		}

	case external.Valid() && external != rec.Status:
		change.Status = external
	}

	// A record marked completed in an earlier run may predate URL
	// synthesis. Backfill without touching its status.
	if change.Empty() && rec.Status == requests.StatusCompleted && rec.PDFURL == "" {
		change.PDFURL = urls.DownloadURL(rec.TaskID, bookFilename(rec, fallbackTitle))
	}

	return change
}

// bookFilename derives the download filename for a record: the sanitized
// book title, else the sanitized first page, else the fallback.
func bookFilename(rec *requests.Record, fallbackTitle string) string {
	if name := pdfapi.SanitizeFilename(rec.BookTitle); name != "" {
		return name
	}
	if len(rec.Pages) > 0 {
		if name := pdfapi.SanitizeFilename(rec.Pages[0]); name != "" {
			return name
		}
	}
	return fallbackTitle
}
