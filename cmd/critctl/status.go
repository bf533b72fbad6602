package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// StatusResponse matches cmd/criticalityd/server.go StatusResponse.
type StatusResponse struct {
	Kind            string   `json:"kind"`
	Phase           string   `json:"phase"`
	Substate        string   `json:"substate,omitempty"`
	Query           string   `json:"query,omitempty"`
	Error           string   `json:"error,omitempty"`
	Artifacts       []string `json:"artifacts"`
	PendingQueries  int      `json:"pending_queries"`
	ResolvedQueries int      `json:"resolved_queries"`
}

// HealthResponse matches cmd/criticalityd/server.go HealthResponse.
type HealthResponse struct {
	Status string `json:"status"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the protocol's current snapshot",
	Long: `Show the running daemon's current protocol state: phase, substate,
produced artifacts, and outstanding blocking queries.

Examples:
  # Show status
  critctl status

  # Query a different daemon
  critctl status --server http://localhost:9999`,
	RunE: runStatus,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check criticalityd health",
	RunE:  runHealthCheck,
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func getJSON(path string, out any) error {
	resp, err := httpClient().Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", serverURL+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s for %s", resp.Status, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	var status StatusResponse
	if err := getJSON("/status", &status); err != nil {
		return err
	}

	cmd.Printf("State:     %s\n", status.Kind)
	cmd.Printf("Phase:     %s\n", status.Phase)
	if status.Substate != "" {
		cmd.Printf("Substate:  %s\n", status.Substate)
	}
	if status.Query != "" {
		cmd.Printf("Query:     %s\n", status.Query)
	}
	if status.Error != "" {
		cmd.Printf("Error:     %s\n", status.Error)
	}
	if len(status.Artifacts) > 0 {
		cmd.Printf("Artifacts: %s\n", strings.Join(status.Artifacts, ", "))
	} else {
		cmd.Printf("Artifacts: (none)\n")
	}
	cmd.Printf("Queries:   %d pending, %d resolved\n", status.PendingQueries, status.ResolvedQueries)
	return nil
}

func runHealthCheck(cmd *cobra.Command, _ []string) error {
	var health HealthResponse
	if err := getJSON("/healthz", &health); err != nil {
		return err
	}
	cmd.Printf("Server status: %s\n", health.Status)
	return nil
}
