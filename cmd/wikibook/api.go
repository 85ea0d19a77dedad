package main

import (
	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running wikibook server via HTTP.

These commands require a running server (wikibook serve).
Use --server to specify a custom server URL, and --token to
authenticate.

Examples:
  wikibook api health                       # Check server health
  wikibook api auth login                   # Log in and print a session token
  wikibook api requests submit "Some Page"  # Submit a book request
  wikibook api requests list                # List visible requests`,
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Book request management commands",
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Requests as subcommand group
	requestsCmd.AddCommand((&endpoints.SubmitEndpoint{}).Command(getServerURL))
	requestsCmd.AddCommand((&endpoints.ListRequestsEndpoint{}).Command(getServerURL))
	requestsCmd.AddCommand((&endpoints.GetRequestEndpoint{}).Command(getServerURL))
	requestsCmd.AddCommand((&endpoints.UpdateRequestEndpoint{}).Command(getServerURL))
	requestsCmd.AddCommand((&endpoints.DeleteRequestEndpoint{}).Command(getServerURL))
	requestsCmd.AddCommand((&endpoints.ClearRequestsEndpoint{}).Command(getServerURL))
	requestsCmd.AddCommand((&endpoints.RefreshEndpoint{}).Command(getServerURL))
	requestsCmd.AddCommand((&endpoints.DownloadEndpoint{}).Command(getServerURL))

	// Auth as subcommand group
	authCmd.AddCommand((&endpoints.LoginEndpoint{}).Command(getServerURL))
	authCmd.AddCommand((&endpoints.LogoutEndpoint{}).Command(getServerURL))
	authCmd.AddCommand((&endpoints.MeEndpoint{}).Command(getServerURL))
	authCmd.AddCommand((&endpoints.GoogleTokenEndpoint{}).Command(getServerURL))
	authCmd.AddCommand((&endpoints.GoogleRefreshEndpoint{}).Command(getServerURL))

	// Admin as subcommand group
	adminCmd.AddCommand((&endpoints.AdminTasksEndpoint{}).Command(getServerURL))
	adminCmd.AddCommand((&endpoints.ImportEndpoint{}).Command(getServerURL))

	// Settings at top level
	apiCmd.AddCommand((&endpoints.GetSettingsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.UpdateSettingsEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(requestsCmd)
	apiCmd.AddCommand(authCmd)
	apiCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(apiCmd)
}
