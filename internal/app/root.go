// Package app contains the Cobra command tree for flowwatch.
package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/config"
	"github.com/blackwell-systems/flowwatch/internal/output"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

// Loaded by the root PersistentPreRunE before any subcommand runs.
var (
	cfg    *config.Config
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

var rootCmd = &cobra.Command{
	Use:   "flowwatch",
	Short: "Flow metrics for kanban boards",
	Long: `flowwatch computes flow metrics from a board's transition log: lead time
histograms, percentile aging zones, WIP, throughput, predictability and a
control chart. Boards are read from a Jira instance or from an exported
snapshot file.

Query parameters resolve in order: flags, settings saved for the board with
'flowwatch settings save', parameters stored in a snapshot file, then config
defaults.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "flowwatch", appVersion)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Use a subcommand:")
		fmt.Fprintln(w, "  leadtime        Lead time histogram and statistics")
		fmt.Fprintln(w, "  aging           Tasks in progress grouped by age")
		fmt.Fprintln(w, "  wip             Work in progress per stage")
		fmt.Fprintln(w, "  percentiles     Aging percentile zones per stage")
		fmt.Fprintln(w, "  throughput      Completed tasks per interval")
		fmt.Fprintln(w, "  predictability  Monthly P95/P50 lead time ratio")
		fmt.Fprintln(w, "  control         Control chart with rolling statistics")
		fmt.Fprintln(w, "  export          Write a board snapshot for offline use")
		fmt.Fprintln(w, "  track           Record metrics and compare with earlier runs")
		fmt.Fprintln(w, "  settings        Manage saved per-board query settings")
		fmt.Fprintln(w, "  textfile        Write Prometheus metrics for the textfile collector")
		fmt.Fprintln(w, "  watch           Poll the board and alert on changes")
		fmt.Fprintln(w, "  mcp             Serve flow metrics over MCP stdio")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads config and configures logging and colour for every command.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = c

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	output.SetNoColor(flagNoColor || !cfg.Output.Color || !output.IsTerminal(os.Stdout))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/flowwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
	addQueryFlags(rootCmd)
}
