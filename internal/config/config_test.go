package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PDFService.BaseURL == "" {
		t.Error("expected default PDF service base URL")
	}
	if cfg.PDFService.APIKey != "${WIKIBOOK_PDF_API_KEY}" {
		t.Error("expected PDF API key placeholder")
	}
	if len(cfg.WikiSources) == 0 {
		t.Error("expected default wiki sources")
	}
	if _, ok := cfg.SourceURL("hamichlol"); !ok {
		t.Error("expected hamichlol wiki source")
	}
	if cfg.Poll.Interval != 2*time.Second {
		t.Errorf("expected 2s poll interval, got %v", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxTransientFailures != 150 {
		t.Errorf("expected 150 max transient failures, got %d", cfg.Poll.MaxTransientFailures)
	}
	if cfg.RecordDB.ContainerName != "wikibook-recorddb" {
		t.Errorf("unexpected container name %q", cfg.RecordDB.ContainerName)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("expected 24h session TTL, got %v", cfg.Auth.SessionTTL)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
wiki_sources:
  testwiki: "https://wiki.example.org"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.WikiSources["testwiki"] != "https://wiki.example.org" {
			t.Errorf("expected https://wiki.example.org, got %s", cfg.WikiSources["testwiki"])
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
poll:
  interval: 5s
  max_transient_failures: 10
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Poll.Interval != 5*time.Second {
			t.Errorf("expected 5s poll interval, got %v", cfg.Poll.Interval)
		}
		if cfg.Poll.MaxTransientFailures != 10 {
			t.Errorf("expected 10 max transient failures, got %d", cfg.Poll.MaxTransientFailures)
		}
		// Untouched sections keep their defaults
		if cfg.RecordDB.Image != "sourcenetwork/defradb:latest" {
			t.Errorf("unexpected record database image %q", cfg.RecordDB.Image)
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
wiki_sources:
  testwiki: "https://wiki.example.org"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Register multiple callbacks
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
wiki_sources:
  testwiki: "https://wiki.example.org"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.WikiSources["testwiki"]
			}
			done <- struct{}{}
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
wiki_sources:
  testwiki: "https://initial.example.org"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Verify initial value
	cfg := mgr.Get()
	if cfg.WikiSources["testwiki"] != "https://initial.example.org" {
		t.Errorf("initial value mismatch: got %s", cfg.WikiSources["testwiki"])
	}

	// Track callback invocations
	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.WikiSources["testwiki"])
	})

	// Start watching
	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	// Update the config file
	newContent := `
wiki_sources:
  testwiki: "https://updated.example.org"
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	// Verify the config was updated
	newCfg := mgr.Get()
	if newCfg.WikiSources["testwiki"] != "https://updated.example.org" {
		t.Errorf("config not updated: got %s", newCfg.WikiSources["testwiki"])
	}

	// Verify callback received the updated value
	if v := lastValue.Load(); v != "https://updated.example.org" {
		t.Errorf("callback received wrong value: got %v", v)
	}
}
