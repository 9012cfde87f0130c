package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
)

var predictabilityMonths int

var predictabilityCmd = &cobra.Command{
	Use:   "predictability",
	Short: "Monthly P95/P50 lead time ratio",
	Long: `For each of the last N calendar months, divide the 95th by the 50th
percentile lead time of the tasks active that month. Lower ratios mean more
predictable delivery. The trend column is a least-squares fit over the
ratios. The query window is ignored; months run up to --as-of.`,
	RunE: runPredictability,
}

func init() {
	predictabilityCmd.Flags().IntVar(&predictabilityMonths, "months", 0, "Number of calendar months (default: config defaults.predictability_months)")
	rootCmd.AddCommand(predictabilityCmd)
}

type predictabilityResult struct {
	Board  snapshot.Board             `json:"board"`
	Months int                        `json:"months"`
	Points []flow.PredictabilityPoint `json:"points"`
}

func runPredictability(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	months := predictabilityMonths
	if months <= 0 {
		months = cfg.Defaults.PredictabilityMonths
	}
	res := predictabilityResult{
		Board:  s.Identity,
		Months: months,
		Points: s.Board.Predictability(s.Query, months),
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, res)
	}
	renderPredictability(w, s, res)
	return nil
}

func renderPredictability(w io.Writer, s *session, res predictabilityResult) {
	fmt.Fprintln(w, output.Section("Predictability"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, sessionHeader(s))
	fmt.Fprintln(w)

	if len(res.Points) == 0 {
		fmt.Fprintf(w, " No completed work in the last %d months.\n", res.Months)
		return
	}

	tbl := output.NewTable("Month", "Tasks", "P50", "P95", "P95/P50", "Trend").AlignRight(1, 2, 3, 4)
	for _, p := range res.Points {
		tbl.AddRow(
			p.Month,
			fmt.Sprintf("%d", p.TaskCount),
			fmt.Sprintf("%d", p.P50),
			fmt.Sprintf("%d", p.P95),
			output.RatioStyle(p.Ratio),
			fmt.Sprintf("%.2f", p.Trend),
		)
	}
	tbl.Fprint(w)

	if n := len(res.Points); n >= 2 {
		fmt.Fprintln(w)
		delta := res.Points[n-1].Trend - res.Points[0].Trend
		fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Trend over period"), output.TrendArrow(delta, false))
	}
}
