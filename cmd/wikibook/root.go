package main

import (
	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	sessionToken string
)

var rootCmd = &cobra.Command{
	Use:   "wikibook",
	Short: "Turn wiki articles into downloadable PDF books",
	Long: `Wikibook submits sets of wiki article pages to a PDF generation
service and tracks each request until the finished book is ready.

The server provides:
  - Request submission with per-user wiki source credentials
  - Background status polling until generation completes
  - Public/private visibility controls on finished books
  - Admin tooling for task inspection and record import`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.wikibook/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "wikibook home directory (default: ~/.wikibook)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&sessionToken, "token", "", "session token for authenticated API commands",
	)

	// Set output format and session token before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
		api.SetSessionToken(sessionToken)
	}

	rootCmd.AddCommand(versionCmd)
}
