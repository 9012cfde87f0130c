package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
)

var percentilesCmd = &cobra.Command{
	Use:   "percentiles",
	Short: "Aging percentile zones per stage",
	Long: `Compute interpolated percentiles, in days, of the time tasks accumulated
up to and including each stage. These are the zones the aging view colours
by. With completion 'last' the final selected stage is left out.`,
	RunE: runPercentiles,
}

func init() {
	rootCmd.AddCommand(percentilesCmd)
}

type percentilesResult struct {
	Board  snapshot.Board          `json:"board"`
	Window flow.Window             `json:"window"`
	Stages []flow.StagePercentiles `json:"stages"`
}

func runPercentiles(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	res := percentilesResult{
		Board:  s.Identity,
		Window: s.Query.Window,
		Stages: s.Board.ColumnPercentileSegments(s.Query),
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, res)
	}
	renderPercentiles(w, s, res)
	return nil
}

func renderPercentiles(w io.Writer, s *session, res percentilesResult) {
	fmt.Fprintln(w, output.Section("Percentile Zones (days)"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, sessionHeader(s))
	fmt.Fprintln(w)

	ranks := flow.FilterPercentiles(s.Query.Percentiles)
	if len(res.Stages) == 0 || len(ranks) == 0 {
		fmt.Fprintln(w, " No percentiles to report.")
		return
	}

	headers := []string{"Stage", "Tasks"}
	for _, r := range ranks {
		headers = append(headers, output.ZoneStyle(flow.PercentileColor(r)).Render(fmt.Sprintf("P%d", r)))
	}
	tbl := output.NewTable(headers...)
	for i := 1; i < len(headers); i++ {
		tbl.AlignRight(i)
	}
	for _, sp := range res.Stages {
		byRank := make(map[int]float64, len(sp.Values))
		for _, v := range sp.Values {
			byRank[v.Rank] = v.Value
		}
		row := []string{sp.Stage.Name, fmt.Sprintf("%d", len(sp.Accumulated))}
		for _, r := range ranks {
			v, ok := byRank[r]
			if !ok {
				row = append(row, output.StyleMuted.Render("-"))
				continue
			}
			row = append(row, fmt.Sprintf("%.1f", v))
		}
		tbl.AddRow(row...)
	}
	tbl.Fprint(w)
}
