package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/home"
	"github.com/yosihaf/wikibook/internal/recorddb"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the record database container",
	Long: `Manage the record database container lifecycle.

The record database is the source of truth for book requests and user
accounts. It runs in a Docker container with data persisted to
~/.wikibook/recorddb/.

Examples:
  wikibook db start   # Start the database container
  wikibook db stop    # Stop the container (data preserved)
  wikibook db status  # Check container status
  wikibook db logs    # View container logs`,
}

var dbStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the record database container",
	Long: `Start the record database container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.

Data is persisted to ~/.wikibook/recorddb/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getDockerManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting record database...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start record database: %w", err)
		}

		fmt.Printf("Record database is running at %s\n", mgr.URL())
		return nil
	},
}

var dbStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the record database container",
	Long: `Stop the record database container.

This stops the container but preserves data. Use 'wikibook db start'
to restart it later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getDockerManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping record database...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop record database: %w", err)
		}

		fmt.Println("Record database stopped")
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show record database container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getDockerManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case recorddb.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())

			// Try health check
			client := recorddb.NewClient(mgr.URL())
			if err := client.HealthCheck(ctx); err != nil {
				fmt.Printf("Health: unhealthy (%v)\n", err)
			} else {
				fmt.Println("Health: healthy")
			}
		case recorddb.StatusStopped:
			fmt.Printf("Status: %s (use 'wikibook db start' to start)\n", status)
		case recorddb.StatusNotFound:
			fmt.Printf("Status: %s (use 'wikibook db start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var (
	logsTail   string
	logsFollow bool
)

var dbLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show record database container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getDockerManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(ctx, logsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var dbRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the record database container",
	Long: `Remove the record database container.

This stops and removes the container. Data in ~/.wikibook/recorddb/
is NOT deleted - only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getDockerManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing record database container...")
		if err := mgr.Remove(ctx); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("Record database container removed (data preserved)")
		return nil
	},
}

var dbWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the record database to be ready",
	Long: `Wait for the record database to be ready to accept connections.

This is useful in scripts to ensure the database is fully started
before running other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getDockerManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for record database (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(ctx, timeout); err != nil {
			return fmt.Errorf("record database not ready: %w", err)
		}

		fmt.Println("Record database is ready")
		return nil
	},
}

func init() {
	// Add subcommands
	dbCmd.AddCommand(dbStartCmd)
	dbCmd.AddCommand(dbStopCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbLogsCmd)
	dbCmd.AddCommand(dbRemoveCmd)
	dbCmd.AddCommand(dbWaitCmd)

	// Logs flags
	dbLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of lines to show from the end")
	dbLogsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (not yet implemented)")

	// Wait flags
	dbWaitCmd.Flags().Duration("timeout", 30*time.Second, "Timeout waiting for the record database")

	// Add to root
	rootCmd.AddCommand(dbCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// getDockerManager creates a DockerManager with the standard config.
func getDockerManager(h *home.Dir) (*recorddb.DockerManager, error) {
	dataPath := h.RecordDBPath()

	// Ensure data directory exists
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return recorddb.NewDockerManager(recorddb.DockerConfig{
		DataPath: dataPath,
	})
}
