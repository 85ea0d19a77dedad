package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/yosihaf/wikibook/internal/home"
	"github.com/yosihaf/wikibook/internal/recorddb"
	"github.com/yosihaf/wikibook/internal/testutil"
)

// TestServer_ContextCancellation tests that the server properly handles context cancellation.
func TestServer_ContextCancellation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testutil.NewServerConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	srv := newTestServer(t, cfg)

	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)

	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	// Wait for server to be ready
	if err := testutil.WaitForServer(cfg.URL(), 60*time.Second); err != nil {
		serverCancel()
		t.Fatalf("server did not start: %v", err)
	}

	// Cancel context immediately
	serverCancel()

	// Server should shut down gracefully
	if err := testutil.WaitForShutdown(serverErr, 30*time.Second); err != nil {
		t.Fatalf("server did not respond to context cancellation: %v", err)
	}

	// Verify the record database is stopped
	mgr, err := recorddb.NewDockerManager(recorddb.DockerConfig{
		ContainerName: cfg.RecordDBConfig.ContainerName,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	defer mgr.Close()

	status, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("failed to get status: %v", err)
	}

	if status == recorddb.StatusRunning {
		t.Error("record database still running after context cancellation")
		_ = mgr.Stop(ctx)
	}
}

// TestServer_DoubleStart tests that starting a running server returns an error.
func TestServer_DoubleStart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testutil.NewServerConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	srv := newTestServer(t, cfg)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	go func() {
		_ = srv.Start(serverCtx)
	}()

	// Wait for server
	if err := testutil.WaitForServer(cfg.URL(), 60*time.Second); err != nil {
		t.Fatalf("server did not start: %v", err)
	}

	// Try to start again - should fail
	err := srv.Start(ctx)
	if err == nil {
		t.Error("second Start() should return error")
	}
}

// TestServer_ReusesExistingContainer tests that the server picks up a
// compatible container left over from a previous run instead of failing.
func TestServer_ReusesExistingContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testutil.NewServerConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	homeDir, err := home.New(cfg.HomePath)
	if err != nil {
		t.Fatalf("failed to create home dir: %v", err)
	}

	// First, start a container directly (simulating a previous run)
	mgr, err := recorddb.NewDockerManager(recorddb.DockerConfig{
		ContainerName: cfg.RecordDBConfig.ContainerName,
		DataPath:      homeDir.RecordDBPath(),
		HostPort:      cfg.RecordDBConfig.HostPort,
		Labels:        cfg.RecordDBConfig.Labels,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		mgr.Close()
		t.Fatalf("failed to start container: %v", err)
	}

	status, err := mgr.Status(ctx)
	if err != nil || status != recorddb.StatusRunning {
		mgr.Close()
		t.Fatalf("container not running: status=%s, err=%v", status, err)
	}
	mgr.Close()

	// Now start the server against the same container
	srv := newTestServer(t, cfg)

	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)

	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	if err := testutil.WaitForServer(cfg.URL(), 60*time.Second); err != nil {
		serverCancel()
		t.Fatalf("server did not start with existing container: %v", err)
	}

	resp, err := http.Get(cfg.URL() + "/ready")
	if err != nil {
		serverCancel()
		t.Fatalf("ready check failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serverCancel()
		t.Errorf("ready status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Clean shutdown
	serverCancel()
	<-serverErr
}
