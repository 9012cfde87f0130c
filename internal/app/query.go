package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/flowwatch/internal/config"
	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
	"github.com/blackwell-systems/flowwatch/internal/source"
	"github.com/blackwell-systems/flowwatch/internal/store"
)

// Query flags shared by every board command.
var (
	flagSource       string
	flagBoard        string
	flagStages       []string
	flagFrom         string
	flagTo           string
	flagDays         int
	flagAsOf         string
	flagResolution   string
	flagCompletion   string
	flagPercentiles  []int
	flagSwimlanes    []string
	flagQuickFilters []string
)

// dbPath locates the settings and snapshot database.
var dbPath = config.DBPath

func addQueryFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&flagSource, "source", "", "Snapshot file or Jira base URL (default: config source)")
	f.StringVar(&flagBoard, "board", "", "Board id")
	f.StringSliceVar(&flagStages, "stages", nil, "Stage names to include, comma separated (default: all)")
	f.StringVar(&flagFrom, "from", "", "Window start date (YYYY-MM-DD)")
	f.StringVar(&flagTo, "to", "", "Window end date (YYYY-MM-DD, default: today)")
	f.IntVar(&flagDays, "days", 0, "Window length in days ending today, used when --from is not set")
	f.StringVar(&flagAsOf, "as-of", "", "Evaluate open intervals at this date instead of now (YYYY-MM-DD)")
	f.StringVar(&flagResolution, "resolution", "", "Lead time unit: day, week, two-weeks or month")
	f.StringVar(&flagCompletion, "completion", "", "Completion criteria: last or all")
	f.IntSliceVar(&flagPercentiles, "percentiles", nil, "Percentiles to report, comma separated")
	f.StringSliceVar(&flagSwimlanes, "swimlanes", nil, "Jira swimlane ids (default: all)")
	f.StringSliceVar(&flagQuickFilters, "quick-filters", nil, "Jira quick filter ids")
}

// queryParams is one layer of unresolved query parameters. Zero values mean
// "not set here".
type queryParams struct {
	Stages       []string `json:"stages,omitempty"`
	From         string   `json:"from,omitempty"`
	To           string   `json:"to,omitempty"`
	WindowDays   int      `json:"window_days,omitempty"`
	Resolution   string   `json:"resolution,omitempty"`
	Completion   string   `json:"completion,omitempty"`
	Percentiles  []int    `json:"percentiles,omitempty"`
	Swimlanes    []string `json:"swimlanes,omitempty"`
	QuickFilters []string `json:"quick_filters,omitempty"`
}

// merge fills every field p leaves unset from lower. The window is taken as
// a unit: any of From, To or WindowDays set in p shadows all three in lower.
func (p queryParams) merge(lower queryParams) queryParams {
	out := p
	if len(out.Stages) == 0 {
		out.Stages = lower.Stages
	}
	if !out.hasWindow() {
		out.From, out.To, out.WindowDays = lower.From, lower.To, lower.WindowDays
	}
	if out.Resolution == "" {
		out.Resolution = lower.Resolution
	}
	if out.Completion == "" {
		out.Completion = lower.Completion
	}
	if len(out.Percentiles) == 0 {
		out.Percentiles = lower.Percentiles
	}
	if len(out.Swimlanes) == 0 {
		out.Swimlanes = lower.Swimlanes
	}
	if len(out.QuickFilters) == 0 {
		out.QuickFilters = lower.QuickFilters
	}
	return out
}

func (p queryParams) hasWindow() bool {
	return p.From != "" || p.To != "" || p.WindowDays > 0
}

func flagParams() queryParams {
	return queryParams{
		Stages:       flagStages,
		From:         flagFrom,
		To:           flagTo,
		WindowDays:   flagDays,
		Resolution:   flagResolution,
		Completion:   flagCompletion,
		Percentiles:  flagPercentiles,
		Swimlanes:    flagSwimlanes,
		QuickFilters: flagQuickFilters,
	}
}

func settingsParams(s *store.BoardSettings) queryParams {
	if s == nil {
		return queryParams{}
	}
	return queryParams{
		Stages:       s.Stages,
		WindowDays:   s.WindowDays,
		Resolution:   s.Resolution,
		Completion:   s.Completion,
		Percentiles:  s.Percentiles,
		Swimlanes:    s.Swimlanes,
		QuickFilters: s.QuickFilters,
	}
}

func snapshotParams(p snapshot.Params) queryParams {
	return queryParams{
		Stages:       p.Stages,
		From:         p.From,
		To:           p.To,
		Resolution:   p.Resolution,
		Completion:   p.Completion,
		Percentiles:  p.Percentiles,
		Swimlanes:    p.Swimlanes,
		QuickFilters: p.QuickFilters,
	}
}

func defaultParams(d config.QueryDefaults) queryParams {
	return queryParams{
		WindowDays:  d.WindowDays,
		Resolution:  d.Resolution,
		Completion:  d.Completion,
		Percentiles: d.Percentiles,
	}
}

// window resolves the date range. A missing To is asOf's day; a missing
// From is WindowDays before To.
func (p queryParams) window(asOf time.Time) (flow.Window, error) {
	if p.From == "" && p.To == "" {
		return flow.LastDays(asOf, p.WindowDays), nil
	}
	to := p.To
	if to == "" {
		to = asOf.UTC().Format(flow.DateLayout)
	}
	from := p.From
	if from == "" {
		t, err := time.Parse(flow.DateLayout, to)
		if err != nil {
			return flow.Window{}, fmt.Errorf("%w: to: %v", flow.ErrInvalidWindow, err)
		}
		from = t.AddDate(0, 0, -p.WindowDays).Format(flow.DateLayout)
	}
	return flow.ParseWindow(from, to)
}

// buildQuery resolves p against board. Unknown stage names are returned for
// reporting; naming only unknown stages is an error.
func buildQuery(board *flow.Board, p queryParams, asOf time.Time) (flow.Query, []string, error) {
	stages, unknown := board.ResolveStages(p.Stages)
	if len(p.Stages) > 0 && len(stages) == 0 {
		return flow.Query{}, unknown, fmt.Errorf("none of the stages %v exist on the board", p.Stages)
	}
	res, err := flow.ParseResolution(p.Resolution)
	if err != nil {
		return flow.Query{}, unknown, err
	}
	completion, err := flow.ParseCompletion(p.Completion)
	if err != nil {
		return flow.Query{}, unknown, err
	}
	w, err := p.window(asOf)
	if err != nil {
		return flow.Query{}, unknown, err
	}
	return flow.Query{
		Stages:      stages,
		Window:      w,
		Resolution:  res,
		Completion:  completion,
		Percentiles: p.Percentiles,
		AsOf:        asOf,
	}, unknown, nil
}

// session is one board loaded and ready to query.
type session struct {
	Identity snapshot.Board
	Key      string
	Params   queryParams
	Source   source.Source
	Log      *flow.Log
	Board    *flow.Board
	Query    flow.Query
}

// target is a board location resolved from flags and config, before its
// transition log is fetched.
type target struct {
	Location     string
	Options      source.Options
	Source       source.Source
	Identity     snapshot.Board
	FromSnapshot queryParams
}

// Key identifies the board in the settings store.
func (t *target) Key() string { return store.BoardKey(t.Identity.Host, t.Identity.ID) }

// resolveTarget opens the source and identifies the board. A snapshot file
// supplies the board id when none is given, along with its saved parameters.
func resolveTarget(ctx context.Context) (*target, error) {
	t := &target{
		Location: flagSource,
		Options:  source.Options{Token: cfg.Jira.Token, Timeout: cfg.Jira.Timeout},
	}
	if t.Location == "" {
		t.Location = cfg.Source
	}
	boardID := flagBoard
	if boardID == "" {
		boardID = cfg.Board
	}

	src, err := source.Open(t.Location, t.Options)
	if err != nil {
		return nil, err
	}
	t.Source = src
	t.Identity = snapshot.Board{Host: src.Host(), ID: boardID}

	if f, ok := src.(*source.File); ok {
		doc, err := f.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", f.Path, err)
		}
		if t.Identity.ID == "" {
			t.Identity.ID = doc.Board.ID
		}
		t.Identity.Name = doc.Board.Name
		t.FromSnapshot = snapshotParams(doc.Params)
	} else if boardID == "" {
		return nil, fmt.Errorf("no board selected: pass --board or set board in config")
	}
	return t, nil
}

// openSession fetches the board named by flags and config and resolves the
// query parameters layered as flags, saved settings, snapshot parameters,
// then config defaults.
func openSession(ctx context.Context) (*session, error) {
	asOf, err := parseAsOf(flagAsOf)
	if err != nil {
		return nil, err
	}
	t, err := resolveTarget(ctx)
	if err != nil {
		return nil, err
	}
	identity, src, opts := t.Identity, t.Source, t.Options

	key := t.Key()
	params := flagParams().
		merge(settingsParams(loadSettings(key))).
		merge(t.FromSnapshot).
		merge(defaultParams(cfg.Defaults))

	if len(params.Swimlanes) > 0 || len(params.QuickFilters) > 0 {
		opts.Swimlanes = params.Swimlanes
		opts.QuickFilters = params.QuickFilters
		if src, err = source.Open(t.Location, opts); err != nil {
			return nil, err
		}
	}

	logger.Debug("fetching board", "host", identity.Host, "board", identity.ID)
	log, err := src.Fetch(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	board := flow.NewBoard(log)
	stats := board.NormalizeStats()
	logger.Debug("board loaded", "stages", len(board.Stages()), "tasks", stats.Tasks, "events", stats.Events)
	if stats.Skipped > 0 {
		logger.Warn("skipped malformed transitions", "count", stats.Skipped)
	}

	q, unknown, err := buildQuery(board, params, asOf)
	if len(unknown) > 0 {
		logger.Warn("ignoring unknown stages", "stages", unknown)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("query", "window", q.Window.String(), "resolution", q.Resolution, "completion", q.Completion)

	return &session{
		Identity: identity,
		Key:      key,
		Params:   params,
		Source:   src,
		Log:      log,
		Board:    board,
		Query:    q,
	}, nil
}

// loadSettings returns the saved settings of key, or nil. A database that
// cannot be opened only costs the saved layer.
func loadSettings(key string) *store.BoardSettings {
	db, err := store.Open(dbPath())
	if err != nil {
		logger.Warn("saved settings unavailable", "err", err)
		return nil
	}
	defer func() { _ = db.Close() }()

	s, err := db.LoadSettings(key)
	if err != nil {
		logger.Warn("saved settings unavailable", "err", err)
		return nil
	}
	if s != nil {
		logger.Debug("applying saved settings", "board", key)
	}
	return s
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(flow.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing --as-of: %w", err)
	}
	// End of the day, so tasks entered that day count as open.
	return t.Add(24*time.Hour - time.Millisecond), nil
}

// barWidth sizes histogram bars from the configured terminal width.
func barWidth() int {
	w := cfg.Output.Width / 3
	if w < 10 {
		w = 10
	}
	return w
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
