package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/criticality/internal/checkpoint"
	"github.com/fyrsmithlabs/criticality/internal/config"
	"github.com/fyrsmithlabs/criticality/internal/ledger"
	"github.com/fyrsmithlabs/criticality/internal/phase"
)

var forceInit bool

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing state file")
}

// initCmd writes a fresh Ignition checkpoint and an empty ledger file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a fresh protocol state",
	Long: `Initialize the protocol by writing a fresh Ignition checkpoint and an
empty decision ledger at the configured paths.

Examples:
  # Initialize with default paths
  critctl init

  # Overwrite an existing state file
  critctl init --force`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if !forceInit {
		if _, err := os.Stat(cfg.Paths.StateFile); err == nil {
			return fmt.Errorf("state file %s already exists; use --force to overwrite", cfg.Paths.StateFile)
		}
	}

	svc := checkpoint.NewService(checkpoint.DefaultConfig(cfg.Paths.StateFile))
	snapshot := phase.StateSnapshot{
		State: phase.ActiveState{Phase: phase.Ignition, Substate: "entered"},
	}
	if err := svc.Save(snapshot); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}

	store := ledger.NewFileStore(cfg.Paths.LedgerFile, cfg.Paths.ProjectRoot)
	if err := store.Save(ledger.New()); err != nil {
		return fmt.Errorf("writing ledger file: %w", err)
	}

	cmd.Printf("Initialized protocol state at %s\n", cfg.Paths.StateFile)
	cmd.Printf("Initialized decision ledger at %s\n", cfg.Paths.LedgerFile)
	return nil
}
