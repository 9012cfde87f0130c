package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
)

var leadTimeDense bool

var leadTimeCmd = &cobra.Command{
	Use:   "leadtime",
	Short: "Lead time histogram and statistics",
	Long: `Bucket the lead time of every task active in the window by the chosen
resolution, then report the mean, nearest-rank percentiles and the
percentile reference lines in days.`,
	RunE: runLeadTime,
}

func init() {
	leadTimeCmd.Flags().BoolVar(&leadTimeDense, "dense", false, "Show empty buckets between the shortest and longest lead time")
	rootCmd.AddCommand(leadTimeCmd)
}

type leadTimeResult struct {
	Board          snapshot.Board         `json:"board"`
	Window         flow.Window            `json:"window"`
	Resolution     flow.Resolution        `json:"resolution"`
	Histogram      []flow.HistogramBucket `json:"histogram"`
	Statistics     flow.Statistics        `json:"statistics"`
	ReferenceLines []flow.PercentileValue `json:"reference_lines"`
}

func runLeadTime(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	hist := s.Board.LeadTimeHistogram(s.Query)
	res := leadTimeResult{
		Board:          s.Identity,
		Window:         s.Query.Window,
		Resolution:     s.Query.Resolution,
		Histogram:      hist,
		Statistics:     flow.Summarize(hist),
		ReferenceLines: s.Board.ReferenceLines(s.Query),
	}
	if leadTimeDense {
		res.Histogram = flow.DenseHistogram(hist)
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, res)
	}
	renderLeadTime(w, s, res)
	return nil
}

func renderLeadTime(w io.Writer, s *session, res leadTimeResult) {
	fmt.Fprintln(w, output.Section("Lead Time"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, sessionHeader(s))
	fmt.Fprintln(w)

	if res.Statistics.TotalTasks == 0 {
		fmt.Fprintln(w, " No tasks with a lead time in this window.")
		return
	}

	top := 0
	for _, b := range res.Histogram {
		top = max(top, b.Count)
	}
	unit := unitLabel(res.Resolution)
	tbl := output.NewTable(unit, "Tasks").AlignRight(0)
	for _, b := range res.Histogram {
		tbl.AddRow(fmt.Sprintf("%d", b.Value), output.Bar(b.Count, top, barWidth()))
	}
	tbl.Fprint(w)

	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Tasks"), output.StyleValue.Render(fmt.Sprintf("%d", res.Statistics.TotalTasks)))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Mean ("+unit+")"), output.StyleValue.Render(fmt.Sprintf("%.1f", res.Statistics.Mean)))
	for _, r := range flow.StatisticsRanks {
		label := fmt.Sprintf("P%d (%s)", r, unit)
		fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render(label), output.StyleValue.Render(fmt.Sprintf("%d", res.Statistics.Percentiles[r])))
	}

	if len(res.ReferenceLines) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, " "+output.StyleBold.Render("Reference lines (days)"))
		for _, l := range res.ReferenceLines {
			style := output.ZoneStyle(flow.PercentileColor(l.Rank))
			fmt.Fprintf(w, "   %s %s\n", style.Render(fmt.Sprintf("P%-3d", l.Rank)), fmt.Sprintf("%.0f", l.Value))
		}
	}
}

// sessionHeader is the one-line description of what was queried.
func sessionHeader(s *session) string {
	name := s.Identity.ID
	if s.Identity.Name != "" {
		name = fmt.Sprintf("%s (%s)", s.Identity.Name, s.Identity.ID)
	}
	if name == "" {
		name = s.Identity.Host
	}
	stages := "all stages"
	if len(s.Query.Stages) > 0 {
		stages = stageNames(s.Query.Stages)
	}
	return output.StyleMuted.Render(fmt.Sprintf(" Board %s · %s · %s · %s · completion %s",
		name, s.Query.Window, stages, s.Query.Resolution, s.Query.Completion))
}

func unitLabel(r flow.Resolution) string {
	switch r {
	case flow.ResolutionWeek:
		return "Weeks"
	case flow.ResolutionTwoWeeks:
		return "Two-week periods"
	case flow.ResolutionMonth:
		return "Months"
	default:
		return "Days"
	}
}
