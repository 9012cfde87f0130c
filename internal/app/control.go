package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
)

var controlLimit int

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Control chart with rolling statistics",
	Long: `Place every task active in the window at its latest entry into a
selected stage, with its lead time in days and a centred rolling mean and
standard deviation. Tasks outside mean ± 2σ are highlighted.`,
	RunE: runControl,
}

func init() {
	controlCmd.Flags().IntVar(&controlLimit, "limit", 0, "Show only the N most recent tasks (0 = all)")
	rootCmd.AddCommand(controlCmd)
}

type controlResult struct {
	Board  snapshot.Board      `json:"board"`
	Window flow.Window         `json:"window"`
	Points []flow.ControlPoint `json:"points"`
}

func runControl(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	points := s.Board.ControlChart(s.Query)
	if controlLimit > 0 && len(points) > controlLimit {
		points = points[len(points)-controlLimit:]
	}
	res := controlResult{Board: s.Identity, Window: s.Query.Window, Points: points}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, res)
	}
	renderControl(w, s, res)
	return nil
}

func renderControl(w io.Writer, s *session, res controlResult) {
	fmt.Fprintln(w, output.Section("Control Chart"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, sessionHeader(s))
	fmt.Fprintln(w)

	if len(res.Points) == 0 {
		fmt.Fprintln(w, " No tasks in this window.")
		return
	}

	tbl := output.NewTable("Started", "Task", "Lead (days)", "Rolling mean", "Rolling σ").AlignRight(2, 3, 4)
	for _, p := range res.Points {
		lead := fmt.Sprintf("%d", p.LeadTimeDays)
		if outOfControl(p) {
			lead = output.StyleError.Render(lead)
		}
		tbl.AddRow(
			p.Started.Format(flow.DateLayout),
			p.TaskKey,
			lead,
			fmt.Sprintf("%.1f", p.RollingMean),
			fmt.Sprintf("%.1f", p.RollingStdDev),
		)
	}
	tbl.Fprint(w)
}

// outOfControl reports whether p lies more than two standard deviations
// from its rolling mean.
func outOfControl(p flow.ControlPoint) bool {
	d := float64(p.LeadTimeDays) - p.RollingMean
	return p.RollingStdDev > 0 && (d > 2*p.RollingStdDev || d < -2*p.RollingStdDev)
}
