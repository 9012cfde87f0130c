package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server exposing the board's flow metrics",
	Long: `Start a Model Context Protocol stdio server that coding agents can query.
Every tool call re-reads the board with the same source, board and query
flags as the other commands. The server exposes five tools:

  get_lead_time       Lead-time statistics and percentile reference lines
  get_wip             Tasks currently in progress per stage
  get_aging           Oldest tasks in progress and their percentile zone
  get_throughput      Completed tasks per interval
  get_predictability  Monthly P95/P50 lead-time ratio

Example MCP configuration:
  {"mcpServers":{"flowwatch":{"command":"flowwatch","args":["mcp","--board","42"]}}}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv := mcp.NewServer(loadMCPSnapshot, appVersion)
	return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
}

// loadMCPSnapshot opens a fresh session for one tool call.
func loadMCPSnapshot(ctx context.Context) (*mcp.Snapshot, error) {
	s, err := openSession(ctx)
	if err != nil {
		return nil, err
	}
	label := s.Identity.ID
	if s.Identity.Name != "" {
		label = fmt.Sprintf("%s (%s)", s.Identity.Name, s.Identity.ID)
	}
	return &mcp.Snapshot{
		Board:  s.Board,
		Query:  s.Query,
		Label:  label,
		Months: cfg.Defaults.PredictabilityMonths,
	}, nil
}
