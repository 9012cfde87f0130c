package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
	"github.com/blackwell-systems/flowwatch/internal/source"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a board snapshot for offline use",
	Long: `Fetch the board and write its stages, transition log and the resolved
query parameters to a JSON or YAML snapshot. Pass the file to --source later
to reproduce the computation without access to Jira.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "Output file (- for stdout)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "json or yaml (default: from the file extension)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	doc := &snapshot.Document{
		Board:  s.Identity,
		Params: exportParams(s),
		Data:   s.Log,
	}
	if j, ok := s.Source.(*source.Jira); ok && doc.Board.Name == "" {
		if info, err := j.Board(cmd.Context(), s.Identity.ID); err == nil {
			doc.Board.Name = info.Name
		} else {
			logger.Debug("board name unavailable", "err", err)
		}
	}

	if exportOutput == "-" {
		format, err := snapshot.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		return snapshot.Encode(cmd.OutOrStdout(), doc, format)
	}

	if exportFormat != "" {
		format, err := snapshot.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		if format != snapshot.FormatFromPath(exportOutput) {
			return fmt.Errorf("--format %s does not match the extension of %s", format, exportOutput)
		}
	}
	if err := snapshot.WriteFile(exportOutput, doc); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	logger.Info("snapshot written", "path", exportOutput, "tasks", s.Board.TaskCount())
	fmt.Fprintf(cmd.ErrOrStderr(), " Exported %d tasks to %s\n", s.Board.TaskCount(), exportOutput)
	return nil
}

// exportParams records the resolved query so an import reproduces it.
func exportParams(s *session) snapshot.Params {
	p := snapshot.Params{
		From:         s.Query.Window.From.Format(flow.DateLayout),
		To:           s.Query.Window.To.Format(flow.DateLayout),
		Resolution:   string(s.Query.Resolution),
		Completion:   string(s.Query.Completion),
		Percentiles:  s.Params.Percentiles,
		Swimlanes:    s.Params.Swimlanes,
		QuickFilters: s.Params.QuickFilters,
	}
	if len(s.Params.Stages) > 0 {
		for _, st := range s.Query.Stages {
			p.Stages = append(p.Stages, st.Name)
		}
	}
	return p
}
