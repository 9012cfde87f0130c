package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/exporter"
)

var (
	textfileOutput string
	textfileMonths int
)

var textfileCmd = &cobra.Command{
	Use:   "textfile",
	Short: "Write Prometheus metrics for the textfile collector",
	Long: `Compute the board's headline metrics and write them in the Prometheus
text exposition format. Point --output into the node exporter's
--collector.textfile.directory and run from cron.`,
	RunE: runTextfile,
}

func init() {
	textfileCmd.Flags().StringVarP(&textfileOutput, "output", "o", "-", "Output .prom file (- for stdout)")
	textfileCmd.Flags().IntVar(&textfileMonths, "months", 0, "Predictability months (default: config defaults.predictability_months)")
	rootCmd.AddCommand(textfileCmd)
}

func runTextfile(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	months := textfileMonths
	if months <= 0 {
		months = cfg.Defaults.PredictabilityMonths
	}
	e := exporter.New()
	e.Observe(buildReport(s, months))

	if textfileOutput == "-" {
		return e.WriteText(cmd.OutOrStdout())
	}
	if err := e.WriteTextfile(textfileOutput); err != nil {
		return fmt.Errorf("writing textfile: %w", err)
	}
	logger.Info("textfile written", "path", textfileOutput, "board", s.Identity.ID)
	return nil
}
