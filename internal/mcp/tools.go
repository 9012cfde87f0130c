package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/flowwatch/internal/flow"
)

// Snapshot is what a Loader returns: a board, the query to run against it
// and the labels tools report back.
type Snapshot struct {
	Board  *flow.Board
	Query  flow.Query
	Label  string // "Name (ID)"
	Months int    // default predictability months
}

// LeadTimeResult holds lead-time statistics in the query's resolution and
// reference lines in days.
type LeadTimeResult struct {
	Board          string                 `json:"board"`
	Window         string                 `json:"window"`
	Resolution     flow.Resolution        `json:"resolution"`
	Statistics     flow.Statistics        `json:"statistics"`
	ReferenceLines []flow.PercentileValue `json:"reference_lines"`
}

// WIPResult holds current work in progress per stage.
type WIPResult struct {
	Board  string          `json:"board"`
	Stages []flow.StageWIP `json:"stages"`
	Total  int             `json:"total"`
}

// AgingResult lists tasks in progress, oldest first.
type AgingResult struct {
	Board string       `json:"board"`
	Tasks []AgingEntry `json:"tasks"`
}

// AgingEntry places one task in its stage's percentile zones.
type AgingEntry struct {
	TaskKey    string `json:"task_key"`
	Stage      string `json:"stage"`
	Days       int    `json:"aging_days"`
	Percentile int    `json:"percentile,omitempty"` // zone rank, 0 without zones
	Above      bool   `json:"above_highest,omitempty"`
}

// ThroughputResult holds completions per interval.
type ThroughputResult struct {
	Board      string                    `json:"board"`
	Resolution flow.Resolution           `json:"resolution"`
	Statistics flow.ThroughputStatistics `json:"statistics"`
	Intervals  []flow.IntervalBucket     `json:"intervals"`
}

// PredictabilityResult holds the monthly P95/P50 ratios.
type PredictabilityResult struct {
	Board  string                     `json:"board"`
	Points []flow.PredictabilityPoint `json:"points"`
}

var (
	noArgsSchema = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)
	agingSchema  = json.RawMessage(`{"type":"object","properties":{` +
		`"stage":{"type":"string","description":"Only tasks in this stage (case-insensitive)"},` +
		`"n":{"type":"integer","description":"Maximum number of tasks to return (default 10)"}` +
		`},"additionalProperties":false}`)
	monthsSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"months":{"type":"integer","description":"Number of calendar months (default from config)"}` +
		`},"additionalProperties":false}`)
)

// addTools registers the flow metric tools on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "get_lead_time",
		Description: "Lead-time statistics and percentile reference lines for the board's window.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetLeadTime,
	})
	s.registerTool(toolDef{
		Name:        "get_wip",
		Description: "Tasks currently in progress per stage.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetWIP,
	})
	s.registerTool(toolDef{
		Name:        "get_aging",
		Description: "Oldest tasks in progress with the percentile zone each one sits in.",
		InputSchema: agingSchema,
		Handler:     s.handleGetAging,
	})
	s.registerTool(toolDef{
		Name:        "get_throughput",
		Description: "Completed tasks per interval of the board's window.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetThroughput,
	})
	s.registerTool(toolDef{
		Name:        "get_predictability",
		Description: "Monthly P95/P50 lead-time ratio with trend; lower is more predictable.",
		InputSchema: monthsSchema,
		Handler:     s.handleGetPredictability,
	})
}

func (s *Server) snapshot(ctx context.Context) (*Snapshot, error) {
	if s.load == nil {
		return nil, fmt.Errorf("no board configured")
	}
	snap, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading board: %w", err)
	}
	return snap, nil
}

func (s *Server) handleGetLeadTime(ctx context.Context, _ json.RawMessage) (any, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return LeadTimeResult{
		Board:          snap.Label,
		Window:         snap.Query.Window.String(),
		Resolution:     snap.Query.Resolution,
		Statistics:     snap.Board.LeadTimeStatistics(snap.Query),
		ReferenceLines: snap.Board.ReferenceLines(snap.Query),
	}, nil
}

func (s *Server) handleGetWIP(ctx context.Context, _ json.RawMessage) (any, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	res := WIPResult{Board: snap.Label, Stages: snap.Board.WIPCounts(snap.Query)}
	for _, st := range res.Stages {
		res.Total += st.Count
	}
	return res, nil
}

func (s *Server) handleGetAging(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Stage string `json:"stage"`
		N     *int   `json:"n"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	n := 10
	if params.N != nil && *params.N > 0 {
		n = *params.N
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	zones := make(map[int][]flow.PercentileSegment)
	for _, sp := range snap.Board.ColumnPercentileSegments(snap.Query) {
		zones[sp.Stage.Index] = sp.Segments
	}

	res := AgingResult{Board: snap.Label, Tasks: []AgingEntry{}}
	for _, sa := range snap.Board.AgingPlacement(snap.Query) {
		if params.Stage != "" && !strings.EqualFold(sa.Stage.Name, params.Stage) {
			continue
		}
		for _, g := range sa.Groups {
			for _, t := range g.Tasks {
				e := AgingEntry{TaskKey: t.TaskKey, Stage: sa.Stage.Name, Days: t.AgingDays}
				if seg, ok := flow.ZoneOf(zones[sa.Stage.Index], float64(t.AgingDays)); ok {
					e.Percentile, e.Above = seg.Rank, seg.Above
				}
				res.Tasks = append(res.Tasks, e)
			}
		}
	}

	sort.Slice(res.Tasks, func(i, j int) bool {
		if res.Tasks[i].Days != res.Tasks[j].Days {
			return res.Tasks[i].Days > res.Tasks[j].Days
		}
		return res.Tasks[i].TaskKey < res.Tasks[j].TaskKey
	})
	if len(res.Tasks) > n {
		res.Tasks = res.Tasks[:n]
	}
	return res, nil
}

func (s *Server) handleGetThroughput(ctx context.Context, _ json.RawMessage) (any, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	intervals := snap.Board.ThroughputSeries(snap.Query)
	return ThroughputResult{
		Board:      snap.Label,
		Resolution: snap.Query.Resolution,
		Statistics: flow.SummarizeThroughput(intervals),
		Intervals:  intervals,
	}, nil
}

func (s *Server) handleGetPredictability(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Months *int `json:"months"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	months := snap.Months
	if params.Months != nil && *params.Months > 0 {
		months = *params.Months
	}
	points := snap.Board.Predictability(snap.Query, months)
	if points == nil {
		points = []flow.PredictabilityPoint{}
	}
	return PredictabilityResult{Board: snap.Label, Points: points}, nil
}
