package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/config"
	"github.com/yosihaf/wikibook/internal/home"
	"github.com/yosihaf/wikibook/internal/recorddb"
	"github.com/yosihaf/wikibook/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wikibook server",
	Long: `Start the wikibook HTTP server.

This starts both the HTTP API server and the record database container.
When the server shuts down (via Ctrl+C or SIGTERM), the database is also
stopped.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes record database status)

Examples:
  wikibook serve                    # Start on default port 8080
  wikibook serve --port 3000        # Start on custom port
  wikibook serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load configuration with hot-reload support
		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()
		cfg := cfgMgr.Get()

		// Ensure record database data directory exists
		if err := os.MkdirAll(h.RecordDBPath(), 0755); err != nil {
			return err
		}

		// Create server
		srv, err := server.New(server.Config{
			Host: serveHost,
			Port: servePort,
			Home: h,
			DBConfig: recorddb.DockerConfig{
				ContainerName: cfg.RecordDB.ContainerName,
				Image:         cfg.RecordDB.Image,
				HostPort:      cfg.RecordDB.Port,
			},
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
