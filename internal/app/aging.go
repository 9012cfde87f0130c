package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
)

var agingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Tasks in progress grouped by age",
	Long: `Show the tasks currently sitting in each selected stage, grouped by age
in days and coloured by the stage's percentile zone. With completion 'last'
the final selected stage is treated as done and left empty.`,
	RunE: runAging,
}

func init() {
	rootCmd.AddCommand(agingCmd)
}

type agingResult struct {
	Board  snapshot.Board          `json:"board"`
	Window flow.Window             `json:"window"`
	Stages []flow.StageAging       `json:"stages"`
	Zones  []flow.StagePercentiles `json:"zones"`
}

func runAging(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	res := agingResult{
		Board:  s.Identity,
		Window: s.Query.Window,
		Stages: s.Board.AgingPlacement(s.Query),
		Zones:  s.Board.ColumnPercentileSegments(s.Query),
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, res)
	}
	renderAging(w, s, res)
	return nil
}

func renderAging(w io.Writer, s *session, res agingResult) {
	fmt.Fprintln(w, output.Section("Aging Work in Progress"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, sessionHeader(s))
	fmt.Fprintln(w)

	zones := make(map[int][]flow.PercentileSegment, len(res.Zones))
	for _, z := range res.Zones {
		zones[z.Stage.Index] = z.Segments
	}

	tbl := output.NewTable("Stage", "Age (days)", "Tasks", "Zone")
	for _, sa := range res.Stages {
		for _, g := range sa.Groups {
			for _, t := range g.Tasks {
				age := fmt.Sprintf("%d", t.AgingDays)
				zone := ""
				if seg, ok := flow.ZoneOf(zones[sa.Stage.Index], float64(t.AgingDays)); ok {
					style := output.ZoneStyle(seg.Color)
					age = style.Render(age)
					zone = style.Render(zoneLabel(seg))
				}
				tbl.AddRow(sa.Stage.Name, age, t.TaskKey, zone)
			}
		}
	}
	if tbl.Rows() == 0 {
		fmt.Fprintln(w, " No tasks in progress.")
		return
	}
	tbl.Fprint(w)
}

func zoneLabel(seg flow.PercentileSegment) string {
	if seg.Above {
		return fmt.Sprintf(">P%d", seg.Rank)
	}
	return fmt.Sprintf("≤P%d", seg.Rank)
}

// stageNames joins the display names of stages.
func stageNames(stages []flow.Stage) string {
	names := make([]string, 0, len(stages))
	for _, st := range stages {
		names = append(names, st.Name)
	}
	return strings.Join(names, ", ")
}
