package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
)

var throughputCmd = &cobra.Command{
	Use:   "throughput",
	Short: "Completed tasks per interval",
	Long: `Count the tasks that completed in each interval of the window. A task
completes when it first reaches the last selected stage or any stage after
it. Intervals are 1, 7, 14 or 30 days long depending on --resolution.`,
	RunE: runThroughput,
}

func init() {
	rootCmd.AddCommand(throughputCmd)
}

type throughputResult struct {
	Board      snapshot.Board            `json:"board"`
	Window     flow.Window               `json:"window"`
	Resolution flow.Resolution           `json:"resolution"`
	Intervals  []flow.IntervalBucket     `json:"intervals"`
	Statistics flow.ThroughputStatistics `json:"statistics"`
}

func runThroughput(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	series := s.Board.ThroughputSeries(s.Query)
	res := throughputResult{
		Board:      s.Identity,
		Window:     s.Query.Window,
		Resolution: s.Query.Resolution,
		Intervals:  series,
		Statistics: flow.SummarizeThroughput(series),
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, res)
	}
	renderThroughput(w, s, res)
	return nil
}

func renderThroughput(w io.Writer, s *session, res throughputResult) {
	fmt.Fprintln(w, output.Section("Throughput"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, sessionHeader(s))
	fmt.Fprintln(w)

	top := 0
	counts := make([]int, 0, len(res.Intervals))
	for _, b := range res.Intervals {
		top = max(top, b.Count)
		counts = append(counts, b.Count)
	}

	tbl := output.NewTable("Interval", "Completed")
	for _, b := range res.Intervals {
		label := b.Start.Format(flow.DateLayout)
		if !b.End.Equal(b.Start) {
			label += " – " + b.End.Format(flow.DateLayout)
		}
		tbl.AddRow(label, output.Bar(b.Count, top, barWidth()))
	}
	tbl.Fprint(w)

	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Trend"), output.Sparkline(counts))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Total"), output.StyleValue.Render(fmt.Sprintf("%d", res.Statistics.Total)))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Average per interval"), output.StyleValue.Render(fmt.Sprintf("%.1f", res.Statistics.Average)))
}
