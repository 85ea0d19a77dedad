package generate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yosihaf/wikibook/internal/config"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/recorddb"
	"github.com/yosihaf/wikibook/internal/users"
)

// userDBServer answers every AppUser query with the given documents.
func userDBServer(t *testing.T, docs []any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			users.Collection: docs,
		}})
	}))
}

func testConfigManager(t *testing.T) *config.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr
}

func TestUserClients_ClientFor(t *testing.T) {
	shared := pdfapi.NewClient("https://shared.example", "shared-key")
	cfgMgr := testConfigManager(t)

	t.Run("endpoint override builds a dedicated client", func(t *testing.T) {
		srv := userDBServer(t, []any{map[string]any{
			"_docID":       "bae-user-1",
			"username":     "alice",
			"wiki_api_url": "https://custom.example",
		}})
		defer srv.Close()

		uc := &UserClients{
			Users:  users.NewManager(recorddb.NewClient(srv.URL), discardLogger()),
			Config: cfgMgr,
			Shared: shared,
			Logger: discardLogger(),
		}
		client := uc.ClientFor(t.Context(), "alice")
		if client == shared {
			t.Fatal("expected a per-user client, got the shared one")
		}
		if url := client.DownloadURL("task-1", "book"); !strings.HasPrefix(url, "https://custom.example/") {
			t.Errorf("DownloadURL = %q, want the override base URL", url)
		}
	})

	t.Run("no override keeps the shared client", func(t *testing.T) {
		srv := userDBServer(t, []any{map[string]any{
			"_docID":   "bae-user-2",
			"username": "bob",
		}})
		defer srv.Close()

		uc := &UserClients{
			Users:  users.NewManager(recorddb.NewClient(srv.URL), discardLogger()),
			Config: cfgMgr,
			Shared: shared,
			Logger: discardLogger(),
		}
		if client := uc.ClientFor(t.Context(), "bob"); client != shared {
			t.Error("expected the shared client for an account without overrides")
		}
	})

	t.Run("lookup failure falls back to shared", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		uc := &UserClients{
			Users:  users.NewManager(recorddb.NewClient(srv.URL), discardLogger()),
			Config: cfgMgr,
			Shared: shared,
			Logger: discardLogger(),
		}
		if client := uc.ClientFor(t.Context(), "ghost"); client != shared {
			t.Error("expected the shared client when the account lookup fails")
		}
	})

	t.Run("empty owner resolves to shared", func(t *testing.T) {
		uc := &UserClients{Config: cfgMgr, Shared: shared, Logger: discardLogger()}
		if client := uc.ClientFor(t.Context(), ""); client != shared {
			t.Error("expected the shared client for an ownerless record")
		}
	})
}

func TestUserClients_ClientForSettings(t *testing.T) {
	shared := pdfapi.NewClient("https://shared.example", "shared-key")
	uc := &UserClients{Config: testConfigManager(t), Shared: shared, Logger: discardLogger()}

	t.Run("key-only override keeps the configured base URL", func(t *testing.T) {
		client := uc.ClientForSettings(users.Settings{WikiAPIKey: "personal-key"})
		if client == shared {
			t.Fatal("expected a per-user client")
		}
		base := uc.Config.Get().PDFService.BaseURL
		if url := client.DownloadURL("task-1", "book"); !strings.HasPrefix(url, base+"/") {
			t.Errorf("DownloadURL = %q, want configured base %q", url, base)
		}
	})

	t.Run("zero settings keep the shared client", func(t *testing.T) {
		if client := uc.ClientForSettings(users.Settings{}); client != shared {
			t.Error("expected the shared client")
		}
	})
}
