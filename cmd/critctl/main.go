// Package main implements the critctl CLI for operating a criticalityd
// instance: initializing state, inspecting the snapshot and ledger, and
// resolving blocking queries.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the criticalityd HTTP server
	serverURL string
	// configPath overrides the default config file location
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "critctl",
	Short: "CLI for criticality protocol operations",
	Long: `critctl is a command-line interface for operating the criticality
synthesis protocol: initializing a fresh state file, inspecting the current
snapshot and decision ledger, and resolving blocking queries against a
running criticalityd.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9180", "criticalityd server URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/criticality/config.yaml)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(healthCmd)
}
