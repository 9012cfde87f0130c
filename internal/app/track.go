package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/output"
	"github.com/blackwell-systems/flowwatch/internal/store"
)

var (
	trackCompare int
	trackHistory int
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record metrics and compare with earlier runs",
	Long: `Compute the board's headline metrics, store them as a new snapshot, and
compare against the most recent previous snapshot of the same board to show
deltas with trend arrows.`,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().IntVar(&trackCompare, "compare", 1, "Compare against Nth previous snapshot (1 = most recent)")
	trackCmd.Flags().IntVar(&trackHistory, "history", 0, "Show metric trends across N most recent snapshots")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	db, err := store.Open(dbPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	report := buildReport(s, cfg.Defaults.PredictabilityMonths)

	snapshotID, err := db.CreateSnapshot(store.Snapshot{
		BoardKey:   s.Key,
		Source:     s.Identity.Host,
		WindowFrom: s.Query.Window.From.Format(flow.DateLayout),
		WindowTo:   s.Query.Window.To.Format(flow.DateLayout),
		Version:    appVersion,
	})
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := db.InsertAggregateMetrics(snapshotID, reportMetrics(report)); err != nil {
		return fmt.Errorf("inserting metrics: %w", err)
	}
	logger.Debug("snapshot recorded", "id", snapshotID, "board", s.Key)

	w := cmd.OutOrStdout()

	if trackHistory > 0 {
		timeline, err := loadHistory(db, s.Key, trackHistory)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(w, map[string]any{"history": timeline})
		}
		renderHistory(w, timeline)
		return nil
	}

	// trackCompare=1 means the immediate predecessor, offset 2 from newest.
	prevSnapshot, err := db.GetSnapshotN(s.Key, trackCompare+1)
	if err != nil {
		return fmt.Errorf("loading previous snapshot: %w", err)
	}
	currentSnapshot, err := db.GetSnapshot(snapshotID)
	if err != nil {
		return fmt.Errorf("loading current snapshot: %w", err)
	}

	var diff *store.SnapshotDiff
	if prevSnapshot != nil {
		prevMetrics, err := db.GetAggregateMetrics(prevSnapshot.ID)
		if err != nil {
			return fmt.Errorf("loading previous metrics: %w", err)
		}
		currMetrics, err := db.GetAggregateMetrics(snapshotID)
		if err != nil {
			return fmt.Errorf("loading current metrics: %w", err)
		}
		diff = &store.SnapshotDiff{
			Previous: prevSnapshot,
			Current:  currentSnapshot,
			Deltas:   store.ComputeDeltas(prevMetrics, currMetrics, higherIsBetter),
		}
		sortDeltas(diff.Deltas)
	}

	if flagJSON {
		result := map[string]any{"snapshot": currentSnapshot}
		if diff != nil {
			result["diff"] = diff
		}
		return writeJSON(w, result)
	}
	renderTrackOutput(w, currentSnapshot, diff)
	return nil
}

// metricDirection maps metric names to whether higher values are better.
var metricDirection = map[string]bool{
	"tasks":                true,
	"lead_time_mean":       false,
	"lead_time_p50":        false,
	"lead_time_p85":        false,
	"lead_time_p95":        false,
	"wip_total":            false,
	"throughput_total":     true,
	"throughput_average":   true,
	"predictability_ratio": false, // closer to 1 is more predictable
}

func higherIsBetter(name string) bool {
	better, known := metricDirection[name]
	return better || !known
}

// metricDisplayOrder defines the order metrics appear in output.
var metricDisplayOrder = []string{
	"tasks",
	"lead_time_mean",
	"lead_time_p50",
	"lead_time_p85",
	"lead_time_p95",
	"wip_total",
	"throughput_total",
	"throughput_average",
	"predictability_ratio",
}

// metricShortName returns a compact label for display.
func metricShortName(name string) string {
	short := map[string]string{
		"tasks":                "Tasks",
		"lead_time_mean":       "Lead Time Mean",
		"lead_time_p50":        "Lead Time P50",
		"lead_time_p85":        "Lead Time P85",
		"lead_time_p95":        "Lead Time P95",
		"wip_total":            "WIP",
		"throughput_total":     "Throughput",
		"throughput_average":   "Throughput / Interval",
		"predictability_ratio": "P95/P50",
	}
	if s, ok := short[name]; ok {
		return s
	}
	return name
}

// sortDeltas orders deltas by metricDisplayOrder; unknown names go last.
func sortDeltas(deltas []store.MetricDelta) {
	rank := make(map[string]int, len(metricDisplayOrder))
	for i, name := range metricDisplayOrder {
		rank[name] = i
	}
	pos := func(name string) int {
		if r, ok := rank[name]; ok {
			return r
		}
		return len(metricDisplayOrder)
	}
	sort.SliceStable(deltas, func(i, j int) bool { return pos(deltas[i].Name) < pos(deltas[j].Name) })
}

func renderTrackOutput(w io.Writer, current *store.Snapshot, diff *store.SnapshotDiff) {
	fmt.Fprintln(w, output.Section("Track: Snapshot Comparison"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " Snapshot #%d taken at %s\n\n", current.ID, current.TakenAt.Local().Format("2006-01-02 15:04:05"))

	if diff == nil {
		fmt.Fprintln(w, " First snapshot recorded. Run 'flowwatch track' again later to see trends.")
		return
	}

	fmt.Fprintf(w, " Comparing against snapshot #%d (%s)\n\n",
		diff.Previous.ID, diff.Previous.TakenAt.Local().Format("2006-01-02 15:04:05"))

	tbl := output.NewTable("Metric", "Previous", "Current", "Delta", "Trend").AlignRight(1, 2, 3)
	for _, d := range diff.Deltas {
		tbl.AddRow(
			metricShortName(d.Name),
			fmt.Sprintf("%.1f", d.Previous),
			fmt.Sprintf("%.1f", d.Current),
			fmt.Sprintf("%+.1f", d.Delta),
			output.TrendArrow(d.Delta, higherIsBetter(d.Name)),
		)
	}
	tbl.Fprint(w)
}

type historyEntry struct {
	Snapshot store.Snapshot          `json:"snapshot"`
	Metrics  []store.AggregateMetric `json:"metrics"`
}

// loadHistory returns up to n snapshots of a board, oldest first.
func loadHistory(db *store.DB, boardKey string, n int) ([]historyEntry, error) {
	snapshots, err := db.GetRecentSnapshots(boardKey, n)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}

	entries := make([]historyEntry, 0, len(snapshots))
	for i := len(snapshots) - 1; i >= 0; i-- {
		metrics, err := db.GetAggregateMetrics(snapshots[i].ID)
		if err != nil {
			return nil, fmt.Errorf("loading metrics for snapshot #%d: %w", snapshots[i].ID, err)
		}
		entries = append(entries, historyEntry{Snapshot: snapshots[i], Metrics: metrics})
	}
	return entries, nil
}

// renderHistory shows a multi-snapshot timeline table.
func renderHistory(w io.Writer, timeline []historyEntry) {
	fmt.Fprintln(w, output.Section("Track: Metric History"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " Showing %d most recent snapshots\n\n", len(timeline))

	headers := []string{"Metric"}
	values := make([]map[string]float64, 0, len(timeline))
	for _, e := range timeline {
		headers = append(headers, fmt.Sprintf("#%d %s", e.Snapshot.ID, e.Snapshot.TakenAt.Local().Format("Jan 02")))
		m := make(map[string]float64, len(e.Metrics))
		for _, am := range e.Metrics {
			m[am.MetricName] = am.MetricValue
		}
		values = append(values, m)
	}
	headers = append(headers, "Trend")
	tbl := output.NewTable(headers...)
	for i := range values {
		tbl.AlignRight(i + 1)
	}

	for _, name := range metricDisplayOrder {
		row := []string{metricShortName(name)}
		for _, m := range values {
			row = append(row, fmt.Sprintf("%.1f", m[name]))
		}
		trend := ""
		if n := len(values); n >= 2 {
			trend = output.TrendArrow(values[n-1][name]-values[0][name], higherIsBetter(name))
		}
		tbl.AddRow(append(row, trend)...)
	}
	tbl.Fprint(w)
}
