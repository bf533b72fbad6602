package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/criticality/internal/config"
	"github.com/fyrsmithlabs/criticality/internal/ledger"
)

var (
	queryFilters      map[string]string
	includeSuperseded bool
	includeInvalid    bool
)

func init() {
	ledgerQueryCmd.Flags().StringToStringVar(&queryFilters, "filter", nil,
		"filter as key=value; valid keys: category, phase, status, confidence")
	ledgerHistoryCmd.Flags().BoolVar(&includeSuperseded, "superseded", true, "include superseded rows")
	ledgerHistoryCmd.Flags().BoolVar(&includeInvalid, "invalidated", true, "include invalidated rows")
	ledgerCmd.AddCommand(ledgerQueryCmd)
	ledgerCmd.AddCommand(ledgerHistoryCmd)
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the decision ledger",
}

var ledgerQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query decisions with typed filters",
	Long: `Query the decision ledger with AND-semantics across the four supported
filter keys.

Examples:
  # All active constraints
  critctl ledger query --filter status=active --filter category=constraint

  # Everything recorded during composition audit
  critctl ledger query --filter phase=composition_audit`,
	RunE: runLedgerQuery,
}

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Dump every ledger row in append order",
	RunE:  runLedgerHistory,
}

func loadLedger() (*ledger.Ledger, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	store := ledger.NewFileStore(cfg.Paths.LedgerFile, cfg.Paths.ProjectRoot)
	l, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger from %s: %w", cfg.Paths.LedgerFile, err)
	}
	return l, nil
}

func printDecisions(cmd *cobra.Command, rows []ledger.Decision) {
	if len(rows) == 0 {
		cmd.Println("(no decisions)")
		return
	}
	for _, d := range rows {
		cmd.Printf("%-24s %-12s %-11s %-11s %s\n", d.ID, d.Status, d.Confidence, d.Phase, d.Constraint)
	}
	cmd.Printf("%d decision(s)\n", len(rows))
}

func runLedgerQuery(cmd *cobra.Command, _ []string) error {
	l, err := loadLedger()
	if err != nil {
		return err
	}
	rows, err := l.QueryByKeys(queryFilters)
	if err != nil {
		return err
	}
	printDecisions(cmd, rows)
	return nil
}

func runLedgerHistory(cmd *cobra.Command, _ []string) error {
	l, err := loadLedger()
	if err != nil {
		return err
	}
	printDecisions(cmd, l.GetHistory(includeSuperseded, includeInvalid))
	return nil
}
