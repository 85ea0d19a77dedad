package requests

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yosihaf/wikibook/internal/recorddb"
)

// mockDBServer simulates the record database GraphQL endpoint.
func mockDBServer(t *testing.T, handler func(query string) map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": handler(req.Query)})
	}))
}

func testManager(t *testing.T, server *httptest.Server) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(recorddb.NewClient(server.URL), logger)
}

func recordDoc(id, taskID string, status string, created string) map[string]any {
	return map[string]any{
		"_docID":           id,
		"original_task_id": taskID,
		"book_title":       "My Book",
		"pages":            []any{"Page One", "Page Two"},
		"status":           status,
		"is_public":        true,
		"owner":            "alice",
		"created_at":       created,
	}
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("Status(%q).Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestManager_Create(t *testing.T) {
	var gotQuery string
	server := mockDBServer(t, func(query string) map[string]any {
		gotQuery = query
		return map[string]any{
			"create_WikiRequest": []any{map[string]any{"_docID": "bae-req-1"}},
		}
	})
	defer server.Close()

	mgr := testManager(t, server)
	rec := NewRecord("task-abc", "My Book", []string{"Page One"}, false, "alice")

	id, err := mgr.Create(t.Context(), rec)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "bae-req-1" {
		t.Errorf("Create() id = %q, want %q", id, "bae-req-1")
	}
	if rec.ID != "bae-req-1" {
		t.Errorf("record ID not set, got %q", rec.ID)
	}
	if !strings.Contains(gotQuery, "create_WikiRequest") {
		t.Errorf("query missing create mutation: %s", gotQuery)
	}
	if !strings.Contains(gotQuery, `"task-abc"`) {
		t.Errorf("query missing task id: %s", gotQuery)
	}
	if !strings.Contains(gotQuery, `"pending"`) {
		t.Errorf("new record should be created pending: %s", gotQuery)
	}
}

func TestManager_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		server := mockDBServer(t, func(query string) map[string]any {
			return map[string]any{
				"WikiRequest": []any{
					recordDoc("bae-req-1", "task-abc", "completed", "2026-01-02T10:00:00Z"),
				},
			}
		})
		defer server.Close()

		rec, err := testManager(t, server).Get(t.Context(), "bae-req-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec.TaskID != "task-abc" {
			t.Errorf("TaskID = %q, want %q", rec.TaskID, "task-abc")
		}
		if rec.Status != StatusCompleted {
			t.Errorf("Status = %q, want %q", rec.Status, StatusCompleted)
		}
		if len(rec.Pages) != 2 || rec.Pages[0] != "Page One" {
			t.Errorf("Pages = %v, want two pages", rec.Pages)
		}
		want := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
		if !rec.CreatedAt.Equal(want) {
			t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, want)
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := mockDBServer(t, func(query string) map[string]any {
			return map[string]any{"WikiRequest": []any{}}
		})
		defer server.Close()

		_, err := testManager(t, server).Get(t.Context(), "bae-missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		server := mockDBServer(t, func(query string) map[string]any { return nil })
		defer server.Close()

		if _, err := testManager(t, server).Get(t.Context(), "bad id!"); err == nil {
			t.Error("expected error for unsafe document ID")
		}
	})
}

func TestManager_List(t *testing.T) {
	var gotQuery string
	server := mockDBServer(t, func(query string) map[string]any {
		gotQuery = query
		return map[string]any{
			"WikiRequest": []any{
				recordDoc("bae-2", "task-2", "pending", "2026-01-02T10:00:00Z"),
				recordDoc("bae-1", "task-1", "completed", "2026-01-01T10:00:00Z"),
			},
		}
	})
	defer server.Close()

	mgr := testManager(t, server)

	t.Run("unfiltered", func(t *testing.T) {
		records, err := mgr.List(t.Context(), ListFilter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("List() returned %d records, want 2", len(records))
		}
		if !strings.Contains(gotQuery, "order: {created_at: DESC}") {
			t.Errorf("list should order newest first: %s", gotQuery)
		}
	})

	t.Run("by owner", func(t *testing.T) {
		if _, err := mgr.List(t.Context(), ListFilter{Owner: "alice"}); err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if !strings.Contains(gotQuery, `owner: {_eq: "alice"}`) {
			t.Errorf("query missing owner filter: %s", gotQuery)
		}
	})

	t.Run("public only with limit", func(t *testing.T) {
		if _, err := mgr.List(t.Context(), ListFilter{PublicOnly: true, Limit: 10}); err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if !strings.Contains(gotQuery, "is_public: {_eq: true}") {
			t.Errorf("query missing visibility filter: %s", gotQuery)
		}
		if !strings.Contains(gotQuery, "limit: 10") {
			t.Errorf("query missing limit: %s", gotQuery)
		}
	})
}

func TestManager_FindByTaskID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		var gotQuery string
		server := mockDBServer(t, func(query string) map[string]any {
			gotQuery = query
			return map[string]any{
				"WikiRequest": []any{
					recordDoc("bae-req-1", "task-abc", "processing", "2026-01-02T10:00:00Z"),
				},
			}
		})
		defer server.Close()

		rec, err := testManager(t, server).FindByTaskID(t.Context(), "task-abc")
		if err != nil {
			t.Fatalf("FindByTaskID() error = %v", err)
		}
		if rec.ID != "bae-req-1" {
			t.Errorf("ID = %q, want %q", rec.ID, "bae-req-1")
		}
		if !strings.Contains(gotQuery, `original_task_id: {_eq: "task-abc"}`) {
			t.Errorf("query missing task id filter: %s", gotQuery)
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := mockDBServer(t, func(query string) map[string]any {
			return map[string]any{"WikiRequest": []any{}}
		})
		defer server.Close()

		_, err := testManager(t, server).FindByTaskID(t.Context(), "task-missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByTaskID() error = %v, want ErrNotFound", err)
		}
	})
}

func TestManager_Import(t *testing.T) {
	t.Run("persists a new record", func(t *testing.T) {
		server := mockDBServer(t, func(query string) map[string]any {
			if strings.Contains(query, "create_WikiRequest") {
				return map[string]any{"create_WikiRequest": []any{
					map[string]any{"_docID": "bae-imported"},
				}}
			}
			return map[string]any{"WikiRequest": []any{}}
		})
		defer server.Close()

		id, err := testManager(t, server).Import(t.Context(), &Record{
			TaskID: "task-new", BookTitle: "My Book", Status: StatusCompleted, Owner: "alice",
		})
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if id != "bae-imported" {
			t.Errorf("id = %q, want %q", id, "bae-imported")
		}
	})

	t.Run("rejects a duplicate task id", func(t *testing.T) {
		created := false
		server := mockDBServer(t, func(query string) map[string]any {
			if strings.Contains(query, "create_WikiRequest") {
				created = true
				return map[string]any{"create_WikiRequest": []any{
					map[string]any{"_docID": "bae-dup"},
				}}
			}
			return map[string]any{"WikiRequest": []any{
				recordDoc("bae-req-1", "task-abc", "completed", "2026-01-02T10:00:00Z"),
			}}
		})
		defer server.Close()

		_, err := testManager(t, server).Import(t.Context(), &Record{TaskID: "task-abc", Status: StatusCompleted})
		if !errors.Is(err, ErrDuplicateTask) {
			t.Fatalf("Import() error = %v, want ErrDuplicateTask", err)
		}
		if created {
			t.Error("a duplicate import must not reach the store")
		}
	})
}

func TestManager_Update(t *testing.T) {
	var gotQuery string
	server := mockDBServer(t, func(query string) map[string]any {
		gotQuery = query
		return map[string]any{
			"update_WikiRequest": []any{map[string]any{"_docID": "bae-req-1"}},
		}
	})
	defer server.Close()

	mgr := testManager(t, server)

	err := mgr.Update(t.Context(), "bae-req-1", map[string]any{
		"status":  StatusCompleted,
		"pdf_url": "https://pdf.example/api/pdf/download/task-abc/My_Book.pdf",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !strings.Contains(gotQuery, `"completed"`) {
		t.Errorf("status value should serialize as a plain string: %s", gotQuery)
	}
	if !strings.Contains(gotQuery, "updated_at") {
		t.Errorf("update should stamp updated_at: %s", gotQuery)
	}
}

func TestManager_SetVisibility(t *testing.T) {
	var gotQuery string
	server := mockDBServer(t, func(query string) map[string]any {
		gotQuery = query
		return map[string]any{
			"update_WikiRequest": []any{map[string]any{"_docID": "bae-req-1"}},
		}
	})
	defer server.Close()

	if err := testManager(t, server).SetVisibility(t.Context(), "bae-req-1", true); err != nil {
		t.Fatalf("SetVisibility() error = %v", err)
	}
	if !strings.Contains(gotQuery, "is_public: true") {
		t.Errorf("query missing visibility update: %s", gotQuery)
	}
}

func TestManager_Delete(t *testing.T) {
	var gotQuery string
	server := mockDBServer(t, func(query string) map[string]any {
		gotQuery = query
		return map[string]any{
			"delete_WikiRequest": []any{map[string]any{"_docID": "bae-req-1"}},
		}
	})
	defer server.Close()

	if err := testManager(t, server).Delete(t.Context(), "bae-req-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !strings.Contains(gotQuery, "delete_WikiRequest") {
		t.Errorf("query missing delete mutation: %s", gotQuery)
	}
}

func TestRecord_VisibleTo(t *testing.T) {
	rec := &Record{Owner: "alice", IsPublic: false}

	if !rec.VisibleTo("alice", false) {
		t.Error("owner should see own private record")
	}
	if rec.VisibleTo("bob", false) {
		t.Error("non-owner should not see private record")
	}
	if !rec.VisibleTo("bob", true) {
		t.Error("admin should see private record")
	}

	rec.IsPublic = true
	if !rec.VisibleTo("bob", false) {
		t.Error("anyone should see public record")
	}
}
