package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yosihaf/wikibook/internal/recorddb"
)

// Collection is the record database collection holding request records.
const Collection = "WikiRequest"

// recordFields is the field selection used by every read query.
const recordFields = `_docID
original_task_id
book_title
pages
status
is_public
pdf_url
error
owner
created_at
updated_at`

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = fmt.Errorf("request record not found")

// ErrDuplicateTask is returned when an import would create a second
// record for the same external task ID.
var ErrDuplicateTask = fmt.Errorf("a record for this task already exists")

// Manager provides CRUD access to request records.
type Manager struct {
	db     *recorddb.Client
	logger *slog.Logger
}

// NewManager creates a request record manager.
func NewManager(db *recorddb.Client, logger *slog.Logger) *Manager {
	return &Manager{db: db, logger: logger.With("component", "requests")}
}

// Create persists a new record and returns its database ID.
func (m *Manager) Create(ctx context.Context, rec *Record) (string, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	doc := map[string]any{
		"original_task_id": rec.TaskID,
		"book_title":       rec.BookTitle,
		"pages":            rec.Pages,
		"status":           string(rec.Status),
		"is_public":        rec.IsPublic,
		"owner":            rec.Owner,
		"created_at":       rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.PDFURL != "" {
		doc["pdf_url"] = rec.PDFURL
	}
	if rec.Error != "" {
		doc["error"] = rec.Error
	}

	id, err := m.db.Create(ctx, Collection, doc)
	if err != nil {
		return "", fmt.Errorf("creating request record: %w", err)
	}
	rec.ID = id

	m.logger.Debug("request record created", "id", id, "task_id", rec.TaskID)
	return id, nil
}

// Get returns the record with the given database ID.
func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	if err := recorddb.ValidateID(id); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`query {
		%s(filter: {_docID: {_eq: %q}}) {
			%s
		}
	}`, Collection, id, recordFields)

	docs, err := m.queryRecords(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// ListFilter narrows List results. Zero value lists everything.
type ListFilter struct {
	// Owner restricts results to records owned by this identity.
	Owner string
	// PublicOnly restricts results to publicly visible records.
	PublicOnly bool
	// Status restricts results to records in this state.
	Status Status
	// Limit caps the number of returned records. Zero means no cap.
	Limit int
}

// List returns records matching the filter, newest first.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	filterExpr := ""
	var clauses []string
	if filter.Owner != "" {
		clauses = append(clauses, fmt.Sprintf("owner: {_eq: %q}", filter.Owner))
	}
	if filter.PublicOnly {
		clauses = append(clauses, "is_public: {_eq: true}")
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status: {_eq: %q}", string(filter.Status)))
	}
	if len(clauses) > 0 {
		filterExpr = "filter: {"
		for i, c := range clauses {
			if i > 0 {
				filterExpr += ", "
			}
			filterExpr += c
		}
		filterExpr += "}, "
	}

	limitExpr := ""
	if filter.Limit > 0 {
		limitExpr = fmt.Sprintf(", limit: %d", filter.Limit)
	}

	query := fmt.Sprintf(`query {
		%s(%sorder: {created_at: DESC}%s) {
			%s
		}
	}`, Collection, filterExpr, limitExpr, recordFields)

	return m.queryRecords(ctx, query)
}

// FindByTaskID returns the record whose original_task_id matches taskID.
// The task ID is an opaque external identifier, so the lookup filters on
// the stored field rather than the database document ID.
func (m *Manager) FindByTaskID(ctx context.Context, taskID string) (*Record, error) {
	query := fmt.Sprintf(`query {
		%s(filter: {original_task_id: {_eq: %q}}) {
			%s
		}
	}`, Collection, taskID, recordFields)

	docs, err := m.queryRecords(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// Update applies a partial update to the record with the given database ID.
// Only the provided fields change; updated_at is stamped automatically.
func (m *Manager) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := recorddb.ValidateID(id); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		if s, ok := v.(Status); ok {
			v = string(s)
		}
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := m.db.Update(ctx, Collection, id, updates); err != nil {
		return fmt.Errorf("updating request record %s: %w", id, err)
	}
	m.logger.Debug("request record updated", "id", id)
	return nil
}

// SetVisibility flips the public flag on a record.
func (m *Manager) SetVisibility(ctx context.Context, id string, public bool) error {
	return m.Update(ctx, id, map[string]any{"is_public": public})
}

// Delete removes the record with the given database ID.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := recorddb.ValidateID(id); err != nil {
		return err
	}
	if err := m.db.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("deleting request record %s: %w", id, err)
	}
	m.logger.Debug("request record deleted", "id", id)
	return nil
}

// Import persists a record exactly as given, preserving its timestamps
// and status. Used by administrative bulk import. Each external task ID
// may back at most one record, so imports that would duplicate one are
// rejected with ErrDuplicateTask.
func (m *Manager) Import(ctx context.Context, rec *Record) (string, error) {
	if rec.TaskID != "" {
		switch _, err := m.FindByTaskID(ctx, rec.TaskID); {
		case err == nil:
			return "", fmt.Errorf("task %s: %w", rec.TaskID, ErrDuplicateTask)
		case !errors.Is(err, ErrNotFound):
			return "", err
		}
	}

	doc := map[string]any{
		"original_task_id": rec.TaskID,
		"book_title":       rec.BookTitle,
		"pages":            rec.Pages,
		"status":           string(rec.Status),
		"is_public":        rec.IsPublic,
		"owner":            rec.Owner,
	}
	if !rec.CreatedAt.IsZero() {
		doc["created_at"] = rec.CreatedAt.Format(time.RFC3339)
	}
	if !rec.UpdatedAt.IsZero() {
		doc["updated_at"] = rec.UpdatedAt.Format(time.RFC3339)
	}
	if rec.PDFURL != "" {
		doc["pdf_url"] = rec.PDFURL
	}
	if rec.Error != "" {
		doc["error"] = rec.Error
	}

	id, err := m.db.Create(ctx, Collection, doc)
	if err != nil {
		return "", fmt.Errorf("importing request record: %w", err)
	}
	m.logger.Info("request record imported", "id", id, "task_id", rec.TaskID)
	return id, nil
}

func (m *Manager) queryRecords(ctx context.Context, query string) ([]*Record, error) {
	resp, err := m.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying request records: %w", err)
	}

	docs, ok := resp.Data[Collection].([]any)
	if !ok {
		return nil, nil
	}

	records := make([]*Record, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, parseRecord(doc))
	}
	return records, nil
}

func parseRecord(doc map[string]any) *Record {
	rec := &Record{
		ID:        stringField(doc, "_docID"),
		TaskID:    stringField(doc, "original_task_id"),
		BookTitle: stringField(doc, "book_title"),
		Status:    Status(stringField(doc, "status")),
		PDFURL:    stringField(doc, "pdf_url"),
		Error:     stringField(doc, "error"),
		Owner:     stringField(doc, "owner"),
	}
	if v, ok := doc["is_public"].(bool); ok {
		rec.IsPublic = v
	}
	if pages, ok := doc["pages"].([]any); ok {
		rec.Pages = make([]string, 0, len(pages))
		for _, p := range pages {
			if s, ok := p.(string); ok {
				rec.Pages = append(rec.Pages, s)
			}
		}
	}
	rec.CreatedAt = timeField(doc, "created_at")
	rec.UpdatedAt = timeField(doc, "updated_at")
	return rec
}

func stringField(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func timeField(doc map[string]any, key string) time.Time {
	s := stringField(doc, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
