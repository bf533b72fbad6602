package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/criticality/internal/config"
	"github.com/fyrsmithlabs/criticality/internal/notify"
	"github.com/fyrsmithlabs/criticality/pkg/criticality"
)

var runMaxTicks int

func init() {
	runCmd.Flags().IntVar(&runMaxTicks, "max-ticks", 0, "tick budget (0 uses thresholds.max_ticks)")
}

// runCmd drives the protocol offline, without a daemon: useful when the
// artifacts are already on disk and only state-machine progress is needed.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Advance the protocol until it blocks, fails, or completes",
	Long: `Load the configured checkpoint and ledger, then tick the protocol until
a terminal outcome or the tick budget is exhausted. No model collaborator is
wired in this mode; only transitions whose artifact preconditions already
hold will fire.

Examples:
  # Resume after a crash and advance as far as the artifacts allow
  critctl run

  # Bound the budget explicitly
  critctl run --max-ticks 10`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	protocol, err := criticality.New(criticality.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("constructing protocol: %w", err)
	}
	protocol.Notifier = notify.FromConfig(cfg.Notifications)

	maxTicks := runMaxTicks
	if maxTicks <= 0 {
		maxTicks = cfg.Thresholds.MaxTicks
	}

	result, err := protocol.Run(context.Background(), maxTicks)
	if err != nil {
		return fmt.Errorf("run stopped after %d tick(s): %w", result.TickCount, err)
	}

	cmd.Printf("Outcome: %s after %d tick(s)\n", result.Outcome, result.TickCount)
	return nil
}
