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

var wipShowTasks bool

var wipCmd = &cobra.Command{
	Use:   "wip",
	Short: "Work in progress per stage",
	Long: `Count, per selected stage, the tasks that sit in it now and entered it
during the window.`,
	RunE: runWIP,
}

func init() {
	wipCmd.Flags().BoolVar(&wipShowTasks, "tasks", false, "List task keys per stage")
	rootCmd.AddCommand(wipCmd)
}

type wipResult struct {
	Board  snapshot.Board  `json:"board"`
	Window flow.Window     `json:"window"`
	Stages []flow.StageWIP `json:"stages"`
	Total  int             `json:"total"`
}

func runWIP(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	res := wipResult{Board: s.Identity, Window: s.Query.Window, Stages: s.Board.WIPCounts(s.Query)}
	for _, st := range res.Stages {
		res.Total += st.Count
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, res)
	}
	renderWIP(w, s, res)
	return nil
}

func renderWIP(w io.Writer, s *session, res wipResult) {
	fmt.Fprintln(w, output.Section("Work in Progress"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, sessionHeader(s))
	fmt.Fprintln(w)

	top := 0
	for _, st := range res.Stages {
		top = max(top, st.Count)
	}

	headers := []string{"Stage", "WIP"}
	if wipShowTasks {
		headers = append(headers, "Tasks")
	}
	tbl := output.NewTable(headers...)
	for _, st := range res.Stages {
		row := []string{st.Stage.Name, output.Bar(st.Count, top, barWidth())}
		if wipShowTasks {
			row = append(row, strings.Join(st.Tasks, " "))
		}
		tbl.AddRow(row...)
	}
	tbl.Fprint(w)

	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Total"), output.StyleValue.Render(fmt.Sprintf("%d", res.Total)))
}
