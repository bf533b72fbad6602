package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var resolveRationale string

func init() {
	resolveCmd.Flags().StringVar(&resolveRationale, "rationale", "", "why this response was chosen")
}

// ResolveRequest matches cmd/criticalityd/server.go ResolveRequest.
type ResolveRequest struct {
	QueryID   string `json:"query_id"`
	Response  string `json:"response"`
	Rationale string `json:"rationale,omitempty"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <query-id> <response>",
	Short: "Resolve an outstanding blocking query",
	Long: `Feed a human response to the daemon's outstanding blocking query. The
resolution takes effect on the daemon's next tick.

Examples:
  # Answer a blocking query
  critctl resolve q-42 "regress to Constraints"

  # Record why
  critctl resolve q-42 "keep NF001" --rationale "latency bound is contractual"`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(ResolveRequest{
		QueryID:   args[0],
		Response:  args[1],
		Rationale: resolveRationale,
	})
	if err != nil {
		return err
	}

	resp, err := httpClient().Post(serverURL+"/resolve", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request to %s/resolve failed: %w", serverURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		cmd.Printf("Resolution for %s accepted; it takes effect on the next tick.\n", args[0])
		return nil
	case http.StatusConflict:
		return fmt.Errorf("protocol is not blocked; nothing to resolve")
	default:
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
}
