package flow

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// Color tags a percentile zone.
type Color string

const (
	ColorTeal   Color = "teal"
	ColorMint   Color = "mint"
	ColorAmber  Color = "amber"
	ColorOrange Color = "orange"
	ColorPink   Color = "pink"
	ColorRed    Color = "red"
)

// Hex returns the chart colour for the tag.
func (c Color) Hex() string {
	switch c {
	case ColorTeal:
		return "#8EDFC2"
	case ColorMint:
		return "#B5EBD7"
	case ColorAmber:
		return "#FFDAA8"
	case ColorOrange:
		return "#FFC4A8"
	case ColorPink:
		return "#FFB4BA"
	default:
		return "#FF9AA2"
	}
}

// PercentileColor maps an allowed rank to its zone colour. Anything else is
// the above-max colour.
func PercentileColor(rank int) Color {
	switch rank {
	case 30:
		return ColorTeal
	case 50:
		return ColorMint
	case 70:
		return ColorAmber
	case 85:
		return ColorOrange
	case 95:
		return ColorPink
	default:
		return ColorRed
	}
}

// PercentileSegment is one aging zone, in days.
type PercentileSegment struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"` // +Inf for the above-max zone
	Rank  int     `json:"percentile"`
	Above bool    `json:"above,omitempty"`
	Color Color   `json:"color"`
}

// MarshalJSON encodes the open upper bound of the above-max zone as null,
// since JSON has no infinity.
func (s PercentileSegment) MarshalJSON() ([]byte, error) {
	type segment struct {
		From  float64  `json:"from"`
		To    *float64 `json:"to"`
		Rank  int      `json:"percentile"`
		Above bool     `json:"above,omitempty"`
		Color Color    `json:"color"`
	}
	out := segment{From: s.From, Rank: s.Rank, Above: s.Above, Color: s.Color}
	if !math.IsInf(s.To, 1) {
		to := s.To
		out.To = &to
	}
	return json.Marshal(out)
}

// PercentileValue is one computed percentile of a stage.
type PercentileValue struct {
	Rank  int     `json:"percentile"`
	Value float64 `json:"value"`
}

// StagePercentiles holds the aging zones of one stage.
type StagePercentiles struct {
	Stage    Stage               `json:"stage"`
	Values   []PercentileValue   `json:"values"`
	Segments []PercentileSegment `json:"segments"`

	// Accumulated is the sorted positive input, in days.
	Accumulated []float64 `json:"accumulated"`
}

// ComputeColumnPercentiles computes interpolated percentile zones per stage.
//
// For each stage of the walk, every task contributes its dwell accumulated
// over all earlier stages of the walk plus this one. Non-positive totals are
// dropped. With CompletionLast the final stage of stages is left out of the
// walk. Ranks outside AllowedPercentiles are ignored; no valid rank yields nil.
func ComputeColumnPercentiles(tasks []TaskDuration, stages []Stage, ranks []int, completion Completion) []StagePercentiles {
	ranks = FilterPercentiles(ranks)
	if len(ranks) == 0 {
		return nil
	}

	walk := append([]Stage(nil), stages...)
	sort.Slice(walk, func(i, j int) bool { return walk[i].Index < walk[j].Index })
	if completion == CompletionLast && len(walk) > 0 {
		walk = walk[:len(walk)-1]
	}

	out := make([]StagePercentiles, 0, len(walk))
	for pos, stage := range walk {
		accumulated := make([]float64, 0, len(tasks))
		for _, t := range tasks {
			var acc time.Duration
			for _, s := range walk[:pos+1] {
				acc += t.ByStage[s.Index]
			}
			if days := float64(acc) / float64(day); days > 0 {
				accumulated = append(accumulated, days)
			}
		}
		sort.Float64s(accumulated)

		sp := StagePercentiles{Stage: stage, Accumulated: accumulated}
		for _, r := range ranks {
			sp.Values = append(sp.Values, PercentileValue{
				Rank:  r,
				Value: ExactPercentile(accumulated, float64(r)),
			})
		}
		sp.Segments = buildSegments(sp.Values)
		out = append(out, sp)
	}
	return out
}

// buildSegments turns ascending percentile values into contiguous zones from
// zero, closed by an open-ended above-max zone.
func buildSegments(values []PercentileValue) []PercentileSegment {
	if len(values) == 0 {
		return nil
	}
	segs := make([]PercentileSegment, 0, len(values)+1)
	from := 0.0
	for _, v := range values {
		segs = append(segs, PercentileSegment{
			From:  from,
			To:    v.Value,
			Rank:  v.Rank,
			Color: PercentileColor(v.Rank),
		})
		from = v.Value
	}
	last := values[len(values)-1]
	segs = append(segs, PercentileSegment{
		From:  from,
		To:    math.Inf(1),
		Rank:  last.Rank,
		Above: true,
		Color: ColorRed,
	})
	return segs
}

// ZoneOf returns the segment containing days. Bounds are inclusive on the
// upper side, so a value equal to a percentile falls in that percentile's
// zone. It returns false when segs is empty.
func ZoneOf(segs []PercentileSegment, days float64) (PercentileSegment, bool) {
	for _, s := range segs {
		if days <= s.To {
			return s, true
		}
	}
	if len(segs) == 0 {
		return PercentileSegment{}, false
	}
	return segs[len(segs)-1], true
}
