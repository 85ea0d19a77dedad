package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wikibook configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default configuration file to the wikibook home directory.

The generated file documents every setting with its default value.
Secrets are referenced via ${ENV_VAR} placeholders so they never
live in the file itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		path := h.ConfigPath()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}

		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}

		cfg := mgr.Get()
		fmt.Printf("PDF service: %s\n", cfg.PDFService.BaseURL)
		fmt.Println("Wiki sources:")
		for name, url := range cfg.WikiSources {
			fmt.Printf("  %s: %s\n", name, url)
		}
		fmt.Printf("Poll interval: %s\n", cfg.Poll.Interval)
		fmt.Printf("Record database: %s (image %s, port %s)\n",
			cfg.RecordDB.ContainerName, cfg.RecordDB.Image, cfg.RecordDB.Port)
		fmt.Printf("Session TTL: %s\n", cfg.Auth.SessionTTL)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
