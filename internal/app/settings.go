package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/source"
	"github.com/blackwell-systems/flowwatch/internal/store"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage saved per-board query settings",
	Long: `Saved settings are keyed by the board's host and id. They apply to every
command run against that board unless a flag overrides them.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved settings of the selected board",
	RunE:  runSettingsShow,
}

var settingsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the given query flags for the selected board",
	Long: `Store --stages, --days, --resolution, --completion, --percentiles,
--swimlanes and --quick-filters for the selected board. Flags not given keep
their saved value. Explicit --from/--to dates are not saved.`,
	RunE: runSettingsSave,
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved settings of the selected board",
	RunE:  runSettingsClear,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every board with saved settings",
	RunE:  runSettingsList,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSaveCmd, settingsClearCmd, settingsListCmd)
	rootCmd.AddCommand(settingsCmd)
}

func withStore(fn func(db *store.DB) error) error {
	db, err := store.Open(dbPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

type settingsView struct {
	Board        string               `json:"board"`
	Saved        *store.BoardSettings `json:"saved"`
	Swimlanes    []source.Option      `json:"available_swimlanes,omitempty"`
	QuickFilters []source.Option      `json:"available_quick_filters,omitempty"`
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd.Context())
	if err != nil {
		return err
	}

	view := settingsView{Board: t.Key()}
	if err := withStore(func(db *store.DB) error {
		view.Saved, err = db.LoadSettings(view.Board)
		return err
	}); err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	if j, ok := t.Source.(*source.Jira); ok {
		info, err := j.Board(cmd.Context(), t.Identity.ID)
		if err != nil {
			logger.Warn("board options unavailable", "err", err)
		} else {
			view.Swimlanes, view.QuickFilters = info.Swimlanes, info.QuickFilters
		}
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, view)
	}
	renderSettings(w, view)
	return nil
}

func renderSettings(w io.Writer, v settingsView) {
	fmt.Fprintln(w, output.Section("Settings: "+v.Board))
	fmt.Fprintln(w)
	if v.Saved == nil {
		fmt.Fprintln(w, " No saved settings. Config defaults apply.")
	} else {
		row := func(label, value string) {
			if value == "" {
				value = output.StyleMuted.Render("(default)")
			}
			fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render(label), value)
		}
		row("Stages", strings.Join(v.Saved.Stages, ", "))
		row("Resolution", v.Saved.Resolution)
		row("Completion", v.Saved.Completion)
		row("Percentiles", joinInts(v.Saved.Percentiles))
		row("Window (days)", intOrEmpty(v.Saved.WindowDays))
		row("Swimlanes", strings.Join(v.Saved.Swimlanes, ", "))
		row("Quick filters", strings.Join(v.Saved.QuickFilters, ", "))
		row("Updated", v.Saved.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	if len(v.Swimlanes) > 0 || len(v.QuickFilters) > 0 {
		fmt.Fprintln(w)
		tbl := output.NewTable("Kind", "ID", "Name")
		for _, o := range v.Swimlanes {
			tbl.AddRow("swimlane", o.ID, o.Name)
		}
		for _, o := range v.QuickFilters {
			tbl.AddRow("quick filter", o.ID, o.Name)
		}
		tbl.Fprint(w)
	}
}

func runSettingsSave(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd.Context())
	if err != nil {
		return err
	}
	p := flagParams()
	if p.Resolution != "" {
		if _, err := flow.ParseResolution(p.Resolution); err != nil {
			return err
		}
	}
	if p.Completion != "" {
		if _, err := flow.ParseCompletion(p.Completion); err != nil {
			return err
		}
	}
	if p.From != "" || p.To != "" {
		logger.Warn("explicit --from/--to dates are not saved; use --days")
		p.From, p.To = "", ""
	}

	key := t.Key()
	var saved *store.BoardSettings
	err = withStore(func(db *store.DB) error {
		prev, err := db.LoadSettings(key)
		if err != nil {
			return err
		}
		merged := p.merge(settingsParams(prev))
		saved = &store.BoardSettings{
			BoardKey:     key,
			Stages:       merged.Stages,
			Resolution:   merged.Resolution,
			Completion:   merged.Completion,
			Percentiles:  merged.Percentiles,
			WindowDays:   merged.WindowDays,
			Swimlanes:    merged.Swimlanes,
			QuickFilters: merged.QuickFilters,
		}
		return db.SaveSettings(saved)
	})
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, saved)
	}
	fmt.Fprintf(w, " Saved settings for %s\n", key)
	return nil
}

func runSettingsClear(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd.Context())
	if err != nil {
		return err
	}
	key := t.Key()

	var deleted bool
	if err := withStore(func(db *store.DB) error {
		deleted, err = db.DeleteSettings(key)
		return err
	}); err != nil {
		return fmt.Errorf("clearing settings: %w", err)
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, map[string]any{"board": key, "deleted": deleted})
	}
	if deleted {
		fmt.Fprintf(w, " Cleared settings for %s\n", key)
	} else {
		fmt.Fprintf(w, " No saved settings for %s\n", key)
	}
	return nil
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	var all []store.BoardSettings
	if err := withStore(func(db *store.DB) error {
		var err error
		all, err = db.ListSettings()
		return err
	}); err != nil {
		return fmt.Errorf("listing settings: %w", err)
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, map[string]any{"settings": all})
	}
	if len(all) == 0 {
		fmt.Fprintln(w, " No saved settings. Use 'flowwatch settings save' to create some.")
		return nil
	}
	tbl := output.NewTable("Board", "Stages", "Resolution", "Completion", "Percentiles", "Days").AlignRight(5)
	for _, s := range all {
		tbl.AddRow(s.BoardKey, strings.Join(s.Stages, ", "), s.Resolution, s.Completion, joinInts(s.Percentiles), intOrEmpty(s.WindowDays))
	}
	tbl.Fprint(w)
	return nil
}

func joinInts(xs []int) string {
	parts := make([]string, 0, len(xs))
	for _, x := range xs {
		parts = append(parts, fmt.Sprintf("%d", x))
	}
	return strings.Join(parts, ", ")
}

func intOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}
