package endpoints

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/auth"
	"github.com/yosihaf/wikibook/internal/config"
	"github.com/yosihaf/wikibook/internal/generate"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/recorddb"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/svcctx"
	"github.com/yosihaf/wikibook/internal/users"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv bundles the services and handler stack for endpoint tests.
// The record database is an httptest server routing GraphQL queries to
// fixture documents. The default PDF service answers nothing, so any
// contact with it is visible in defaultPDFHits.
type testEnv struct {
	services *svcctx.Services
	handler  http.Handler

	defaultPDFHits atomic.Int64

	mu      sync.Mutex
	updates []string
}

// recordUpdates returns every update mutation the mock database received.
func (env *testEnv) recordUpdates() []string {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]string(nil), env.updates...)
}

func userDoc(id, username, role, passwordHash string) map[string]any {
	return map[string]any{
		"_docID":           id,
		"username":         username,
		"password_hash":    passwordHash,
		"role":             role,
		"can_generate_pdf": true,
		"created_at":       "2026-08-01T10:00:00Z",
	}
}

// userDocWithService builds a user whose settings point submissions at
// their own PDF service.
func userDocWithService(id, username, role, passwordHash, serviceURL string) map[string]any {
	doc := userDoc(id, username, role, passwordHash)
	doc["wiki_api_url"] = serviceURL
	return doc
}

func recordDoc(id, owner, status string, public bool) map[string]any {
	return map[string]any{
		"_docID":           id,
		"original_task_id": "task-" + id,
		"book_title":       "Book " + id,
		"pages":            []any{"Page One"},
		"status":           status,
		"is_public":        public,
		"owner":            owner,
		"created_at":       "2026-08-01T10:00:00Z",
	}
}

// newTestEnv spins up a mock record database with the given fixture
// documents and builds the endpoint mux over real managers.
func newTestEnv(t *testing.T, userDocs, recordDocs []map[string]any) *testEnv {
	t.Helper()
	env := &testEnv{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req recorddb.GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data := map[string]any{}
		switch {
		case strings.Contains(req.Query, "mutation"):
			// Updates (last_login stamps etc.) succeed silently; creates
			// return a fixed document ID so submissions persist.
			if strings.Contains(req.Query, "create_"+requests.Collection) {
				data["create_"+requests.Collection] = []any{map[string]any{"_docID": "bae-rec-new"}}
			}
			if strings.Contains(req.Query, "update_"+requests.Collection) {
				env.mu.Lock()
				env.updates = append(env.updates, req.Query)
				env.mu.Unlock()
			}
		case strings.Contains(req.Query, users.Collection):
			data[users.Collection] = matchDocs(req.Query, userDocs, "username")
		case strings.Contains(req.Query, requests.Collection):
			data[requests.Collection] = matchDocs(req.Query, recordDocs, "")
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)

	defaultPDF := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.defaultPDFHits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(defaultPDF.Close)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.WriteDefault(cfgPath); err != nil {
		t.Fatalf("config write: %v", err)
	}
	cfgMgr, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}

	logger := discardLogger()
	db := recorddb.NewClient(srv.URL)
	userMgr := users.NewManager(db, logger)
	reqMgr := requests.NewManager(db, logger)
	authMgr := auth.NewManager(userMgr, filepath.Join(t.TempDir(), "sessions.json"), time.Hour, logger)
	if err := authMgr.Init(); err != nil {
		t.Fatalf("auth init: %v", err)
	}

	sharedPDF := pdfapi.NewClient(defaultPDF.URL, "key")
	pdfClients := &generate.UserClients{Users: userMgr, Config: cfgMgr, Shared: sharedPDF, Logger: logger}
	poller := generate.NewPoller(pdfClients, reqMgr, logger, generate.PollerOptions{
		Interval:      5 * time.Millisecond,
		FallbackTitle: "wiki_book",
	})
	t.Cleanup(poller.Shutdown)

	services := &svcctx.Services{
		RecordDB:   db,
		Requests:   reqMgr,
		Users:      userMgr,
		Auth:       authMgr,
		PDF:        sharedPDF,
		PDFClients: pdfClients,
		Submitter:  generate.NewSubmitter(sharedPDF, reqMgr, logger),
		Poller:     poller,
		ConfigMgr:  cfgMgr,
		Logger:     logger,
	}

	registry := api.NewRegistry()
	for _, ep := range All(Config{}) {
		registry.Register(ep)
	}
	mux := http.NewServeMux()
	registry.RegisterRoutes(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })

	env.services = services
	env.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	})

	return env
}

// matchDocs filters fixture documents against the _docID or nameField
// equality filter embedded in the query. Queries without a matching
// filter return every document.
func matchDocs(query string, docs []map[string]any, nameField string) []any {
	out := make([]any, 0, len(docs))
	for _, doc := range docs {
		if strings.Contains(query, "_docID: {_eq:") {
			id, _ := doc["_docID"].(string)
			if !strings.Contains(query, `"`+id+`"`) {
				continue
			}
		} else if nameField != "" && strings.Contains(query, nameField+": {_eq:") {
			name, _ := doc[nameField].(string)
			if !strings.Contains(query, `"`+name+`"`) {
				continue
			}
		}
		out = append(out, doc)
	}
	return out
}

func (env *testEnv) do(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	session, err := env.services.Auth.Login(t.Context(), username, password)
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return session.Token
}

func defaultUsers() []map[string]any {
	return []map[string]any{
		userDoc("bae-user-alice", "alice", "user", auth.HashPassword("alice-pass")),
		userDoc("bae-user-root", "root", "admin", auth.HashPassword("root-pass")),
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultUsers(), nil)

	t.Run("valid credentials", func(t *testing.T) {
		body := strings.NewReader(`{"username":"alice","password":"alice-pass"}`)
		rr := env.do(t, "POST", "/api/auth/login", "", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
		}

		var resp LoginResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Token == "" {
			t.Error("expected a session token")
		}
		if resp.Username != "alice" {
			t.Errorf("Username = %q, want %q", resp.Username, "alice")
		}
		if resp.Role != "user" {
			t.Errorf("Role = %q, want %q", resp.Role, "user")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		body := strings.NewReader(`{"username":"alice","password":"nope"}`)
		rr := env.do(t, "POST", "/api/auth/login", "", body)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		body := strings.NewReader(`{"username":"alice"}`)
		rr := env.do(t, "POST", "/api/auth/login", "", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})
}

func TestMeEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultUsers(), nil)

	t.Run("authenticated", func(t *testing.T) {
		token := env.login(t, "alice", "alice-pass")
		rr := env.do(t, "GET", "/api/auth/me", token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
		}

		var resp MeResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Username != "alice" {
			t.Errorf("Username = %q, want %q", resp.Username, "alice")
		}
		if !resp.CanGeneratePDF {
			t.Error("CanGeneratePDF = false, want true")
		}
	})

	t.Run("no token", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/auth/me", "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
	})

	t.Run("after logout", func(t *testing.T) {
		token := env.login(t, "alice", "alice-pass")
		if rr := env.do(t, "POST", "/api/auth/logout", token, nil); rr.Code != http.StatusNoContent {
			t.Fatalf("logout status = %d, want %d", rr.Code, http.StatusNoContent)
		}
		rr := env.do(t, "GET", "/api/auth/me", token, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
	})
}

func TestListRequests_Visibility(t *testing.T) {
	records := []map[string]any{
		recordDoc("bae-rec-1", "bob", "completed", true),
		recordDoc("bae-rec-2", "alice", "pending", false),
		recordDoc("bae-rec-3", "bob", "failed", false),
	}
	env := newTestEnv(t, defaultUsers(), records)

	listVisible := func(t *testing.T, token string) []*requests.Record {
		t.Helper()
		rr := env.do(t, "GET", "/api/requests", token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
		}
		var resp ListRequestsResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp.Requests
	}

	t.Run("regular user sees public plus own", func(t *testing.T) {
		token := env.login(t, "alice", "alice-pass")
		got := listVisible(t, token)
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		for _, rec := range got {
			if rec.ID == "bae-rec-3" {
				t.Error("private record of another user leaked")
			}
		}
	})

	t.Run("admin sees everything", func(t *testing.T) {
		token := env.login(t, "root", "root-pass")
		got := listVisible(t, token)
		if len(got) != 3 {
			t.Errorf("len = %d, want 3", len(got))
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/requests", "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
	})
}

func TestGetRequest_HiddenLooksMissing(t *testing.T) {
	records := []map[string]any{
		recordDoc("bae-rec-private", "bob", "completed", false),
	}
	env := newTestEnv(t, defaultUsers(), records)
	token := env.login(t, "alice", "alice-pass")

	rr := env.do(t, "GET", "/api/requests/bae-rec-private", token, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	// An admin still sees it
	adminToken := env.login(t, "root", "root-pass")
	rr = env.do(t, "GET", "/api/requests/bae-rec-private", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("admin status = %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestUpdateRequest_OwnerGate(t *testing.T) {
	records := []map[string]any{
		recordDoc("bae-rec-pub", "bob", "completed", true),
	}
	env := newTestEnv(t, defaultUsers(), records)

	t.Run("non-owner forbidden", func(t *testing.T) {
		token := env.login(t, "alice", "alice-pass")
		body := strings.NewReader(`{"is_public":false}`)
		rr := env.do(t, "PATCH", "/api/requests/bae-rec-pub", token, body)
		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("admin allowed", func(t *testing.T) {
		token := env.login(t, "root", "root-pass")
		body := strings.NewReader(`{"is_public":false}`)
		rr := env.do(t, "PATCH", "/api/requests/bae-rec-pub", token, body)
		if rr.Code != http.StatusOK {
			t.Errorf("status = %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
		}
	})

	t.Run("missing is_public", func(t *testing.T) {
		token := env.login(t, "root", "root-pass")
		rr := env.do(t, "PATCH", "/api/requests/bae-rec-pub", token, strings.NewReader(`{}`))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})
}

func TestUpdateRequest_HiddenLooksMissing(t *testing.T) {
	records := []map[string]any{
		recordDoc("bae-rec-hidden", "bob", "completed", false),
	}
	env := newTestEnv(t, defaultUsers(), records)
	token := env.login(t, "alice", "alice-pass")

	body := strings.NewReader(`{"is_public":true}`)
	rr := env.do(t, "PATCH", "/api/requests/bae-rec-hidden", token, body)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteRequest_Gates(t *testing.T) {
	records := []map[string]any{
		recordDoc("bae-rec-hidden", "bob", "completed", false),
		recordDoc("bae-rec-pub", "bob", "completed", true),
		recordDoc("bae-rec-mine", "alice", "completed", false),
	}
	env := newTestEnv(t, defaultUsers(), records)
	token := env.login(t, "alice", "alice-pass")

	t.Run("invisible record looks missing", func(t *testing.T) {
		rr := env.do(t, "DELETE", "/api/requests/bae-rec-hidden", token, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
		}
	})

	t.Run("visible but not owned is forbidden", func(t *testing.T) {
		rr := env.do(t, "DELETE", "/api/requests/bae-rec-pub", token, nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("owner deletes", func(t *testing.T) {
		rr := env.do(t, "DELETE", "/api/requests/bae-rec-mine", token, nil)
		if rr.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d (%s)", rr.Code, http.StatusNoContent, rr.Body.String())
		}
	})
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSubmitRequest_OwnerServiceOverride(t *testing.T) {
	// A private PDF service that accepts the job and completes it on the
	// second status check. The shared service would answer 404 here, so
	// any contact with it shows up as a wrongly failed record.
	var statusHits atomic.Int64
	override := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/pdf/generate"):
			json.NewEncoder(w).Encode(map[string]any{"task_id": "task-custom"})
		case strings.HasPrefix(r.URL.Path, "/api/pdf/status/"):
			status := "pending"
			if statusHits.Add(1) > 1 {
				status = "completed"
			}
			json.NewEncoder(w).Encode(map[string]any{"status": status})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer override.Close()

	usersFx := append(defaultUsers(),
		userDocWithService("bae-user-carol", "carol", "user", auth.HashPassword("carol-pass"), override.URL))
	env := newTestEnv(t, usersFx, nil)
	token := env.login(t, "carol", "carol-pass")

	rr := env.do(t, "POST", "/api/requests", token, strings.NewReader(`{"pages":["Page A"]}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp SubmitResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TaskID != "task-custom" {
		t.Errorf("TaskID = %q, want %q", resp.TaskID, "task-custom")
	}

	waitUntil(t, func() bool { return !env.services.Poller.Tracking(resp.ID) }, "poller never finished")

	if n := env.defaultPDFHits.Load(); n != 0 {
		t.Errorf("shared PDF service was contacted %d times for an overridden account", n)
	}
	updates := env.recordUpdates()
	if len(updates) == 0 {
		t.Fatal("expected the poller to persist a status update")
	}
	for _, u := range updates {
		if strings.Contains(u, "Task not found") {
			t.Errorf("live job was marked failed: %s", u)
		}
	}
	if last := updates[len(updates)-1]; !strings.Contains(last, `"completed"`) {
		t.Errorf("last persisted update missing completion: %s", last)
	}
}

func TestAdminTasks_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t, defaultUsers(), nil)

	token := env.login(t, "alice", "alice-pass")
	rr := env.do(t, "GET", "/api/admin/tasks?probe=false", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}

	adminToken := env.login(t, "root", "root-pass")
	rr = env.do(t, "GET", "/api/admin/tasks?probe=false", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("admin status = %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, "GET", "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want %q", resp.Status, "ok")
	}
}
