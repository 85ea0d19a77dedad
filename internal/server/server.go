package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/auth"
	"github.com/yosihaf/wikibook/internal/config"
	"github.com/yosihaf/wikibook/internal/generate"
	"github.com/yosihaf/wikibook/internal/home"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/recorddb"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/schema"
	"github.com/yosihaf/wikibook/internal/server/endpoints"
	"github.com/yosihaf/wikibook/internal/svcctx"
	"github.com/yosihaf/wikibook/internal/users"
)

// Server is the main wikibook HTTP server.
// It manages the record database container lifecycle - starting it on
// server start and stopping it on server shutdown - and owns the status
// poller for active generation tasks.
type Server struct {
	httpServer *http.Server
	dbManager  *recorddb.DockerManager
	dbClient   *recorddb.Client
	requests   *requests.Manager
	users      *users.Manager
	authMgr    *auth.Manager
	poller     *generate.Poller
	configMgr  *config.Manager
	homeDir    *home.Dir
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the wikibook home directory
	Home *home.Dir
	// DBConfig holds record database container settings
	DBConfig recorddb.DockerConfig
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	// Persist record database data under the home directory
	if cfg.Home != nil && cfg.DBConfig.DataPath == "" {
		cfg.DBConfig.DataPath = cfg.Home.RecordDBPath()
	}

	dbManager, err := recorddb.NewDockerManager(cfg.DBConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create record database manager: %w", err)
	}

	s := &Server{
		dbManager: dbManager,
		configMgr: cfg.ConfigManager,
		homeDir:   cfg.Home,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{DBManager: dbManager}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and the record database. It blocks until the
// context is cancelled or an error occurs. If an existing database
// container exists, it validates the configuration matches.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	// Validate any existing container matches our config
	if err := s.dbManager.ValidateExisting(ctx); err != nil {
		s.setNotRunning()
		return fmt.Errorf("existing record database container incompatible: %w", err)
	}

	// Start the record database
	s.logger.Info("starting record database")
	if err := s.dbManager.Start(ctx); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to start record database: %w", err)
	}

	// Create client after the database is up
	s.dbClient = recorddb.NewClient(s.dbManager.URL())

	// Verify the database is healthy
	if err := s.dbClient.HealthCheck(ctx); err != nil {
		_ = s.shutdown() // Clean up the container on failure
		return fmt.Errorf("record database health check failed: %w", err)
	}
	s.logger.Info("record database is ready", "url", s.dbManager.URL())

	// Initialize collections
	s.logger.Info("initializing collections")
	if err := schema.Initialize(ctx, s.dbClient, s.logger); err != nil {
		_ = s.shutdown()
		return fmt.Errorf("collection initialization failed: %w", err)
	}

	cfg := s.configMgr.Get()

	// Managers over the record database
	s.requests = requests.NewManager(s.dbClient, s.logger)
	s.users = users.NewManager(s.dbClient, s.logger)

	// Sessions
	sessionsPath := "sessions.json"
	if s.homeDir != nil {
		sessionsPath = s.homeDir.SessionsPath()
	}
	s.authMgr = auth.NewManager(s.users, sessionsPath, cfg.Auth.SessionTTL, s.logger)
	if err := s.authMgr.Init(); err != nil {
		s.logger.Warn("failed to restore sessions", "error", err)
	}

	// PDF service client, submitter, and poller. Polling and other
	// per-record calls resolve the client through the owner's account
	// settings so service overrides survive past submission.
	pdfClient := pdfapi.NewClient(cfg.PDFService.BaseURL, config.ResolveEnvVars(cfg.PDFService.APIKey))
	pdfClients := &generate.UserClients{
		Users:  s.users,
		Config: s.configMgr,
		Shared: pdfClient,
		Logger: s.logger,
	}
	submitter := generate.NewSubmitter(pdfClient, s.requests, s.logger)
	s.poller = generate.NewPoller(pdfClients, s.requests, s.logger, generate.PollerOptions{
		Interval:             cfg.Poll.Interval,
		MaxTransientFailures: cfg.Poll.MaxTransientFailures,
		Unbounded:            cfg.Poll.MaxTransientFailures == 0,
		FallbackTitle:        cfg.PDFService.FallbackTitle,
	})

	var google *auth.GoogleClient
	if id := config.ResolveEnvVars(cfg.Auth.GoogleClientID); id != "" {
		google = auth.NewGoogleClient(id, config.ResolveEnvVars(cfg.Auth.GoogleClientSecret))
	}

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		RecordDB:   s.dbClient,
		Requests:   s.requests,
		Users:      s.users,
		Auth:       s.authMgr,
		Google:     google,
		PDF:        pdfClient,
		PDFClients: pdfClients,
		Submitter:  submitter,
		Poller:     s.poller,
		ConfigMgr:  s.configMgr,
		Logger:     s.logger,
		Home:       s.homeDir,
	}

	// Pick polling back up for tasks that were active before a restart
	if _, err := s.poller.Resume(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to resume active tasks", "error", err)
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown() // Clean up on HTTP error
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server, the poller,
// and the record database.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Stop polling before the store goes away
	if s.poller != nil {
		s.poller.Shutdown()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Stop the record database
	s.logger.Info("stopping record database")
	if err := s.dbManager.Stop(shutdownCtx); err != nil {
		s.logger.Error("record database stop error", "error", err)
	}

	// Close Docker client
	if err := s.dbManager.Close(); err != nil {
		s.logger.Error("record database manager close error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// RecordDB returns the record database client.
// Returns nil if the server hasn't started yet.
func (s *Server) RecordDB() *recorddb.Client {
	return s.dbClient
}

// Poller returns the status poller.
// Returns nil if the server hasn't started yet.
func (s *Server) Poller() *generate.Poller {
	return s.poller
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the record database and poller
// are ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.dbClient == nil || s.poller == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
