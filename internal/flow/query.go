package flow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentinel errors returned by the parameter parsers.
var (
	ErrUnknownResolution = errors.New("unknown resolution")
	ErrUnknownCompletion = errors.New("unknown completion criteria")
	ErrInvalidWindow     = errors.New("invalid time window")
)

// DateLayout is the layout used for window bounds and interval labels.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// Resolution is the time unit used to bucket durations.
type Resolution string

const (
	ResolutionDay      Resolution = "day"
	ResolutionWeek     Resolution = "week"
	ResolutionTwoWeeks Resolution = "two-weeks"
	ResolutionMonth    Resolution = "month"
)

// ParseResolution validates a resolution name. An empty string means day.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(strings.ToLower(strings.TrimSpace(s))) {
	case "", ResolutionDay:
		return ResolutionDay, nil
	case ResolutionWeek:
		return ResolutionWeek, nil
	case ResolutionTwoWeeks:
		return ResolutionTwoWeeks, nil
	case ResolutionMonth:
		return ResolutionMonth, nil
	}
	return "", fmt.Errorf("%w: %q (want day, week, two-weeks or month)", ErrUnknownResolution, s)
}

// IntervalDays is the throughput interval length for the resolution.
func (r Resolution) IntervalDays() int {
	switch r {
	case ResolutionWeek:
		return 7
	case ResolutionTwoWeeks:
		return 14
	case ResolutionMonth:
		return 30
	default:
		return 1
	}
}

// Completion selects which stages count toward completion.
type Completion string

const (
	// CompletionLast treats the final selected stage as "done" and leaves it
	// out of progress metrics.
	CompletionLast Completion = "last"
	// CompletionAll includes every selected stage.
	CompletionAll Completion = "all"
)

// ParseCompletion validates a completion criteria name. An empty string
// means last.
func ParseCompletion(s string) (Completion, error) {
	switch Completion(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompletionLast:
		return CompletionLast, nil
	case CompletionAll:
		return CompletionAll, nil
	}
	return "", fmt.Errorf("%w: %q (want last or all)", ErrUnknownCompletion, s)
}

// Window is an inclusive date range. Both bounds are truncated to UTC days.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewWindow builds a window from two instants, truncating both to their UTC day.
func NewWindow(from, to time.Time) (Window, error) {
	w := Window{From: truncateDay(from), To: truncateDay(to)}
	if w.To.Before(w.From) {
		return Window{}, fmt.Errorf("%w: from %s is after to %s",
			ErrInvalidWindow, w.From.Format(DateLayout), w.To.Format(DateLayout))
	}
	return w, nil
}

// ParseWindow parses two YYYY-MM-DD dates into a Window.
func ParseWindow(from, to string) (Window, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return Window{}, fmt.Errorf("%w: from: %v", ErrInvalidWindow, err)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return Window{}, fmt.Errorf("%w: to: %v", ErrInvalidWindow, err)
	}
	return NewWindow(f, t)
}

// LastDays returns the window from n days before now through now, so it
// spans n+1 calendar days inclusive.
func LastDays(now time.Time, n int) Window {
	to := truncateDay(now)
	return Window{From: to.AddDate(0, 0, -n), To: to}
}

// String formats the window as "from..to".
func (w Window) String() string {
	return w.From.Format(DateLayout) + ".." + w.To.Format(DateLayout)
}

// Query carries every parameter of a metric computation. Callers build one
// per request; nothing in this package keeps query state between calls.
type Query struct {
	// Stages is the selection in workflow order. Empty means all stages.
	Stages      []Stage
	Window      Window
	Resolution  Resolution
	Completion  Completion
	Percentiles []int

	// AsOf closes open intervals. Zero means time.Now().
	AsOf time.Time
}

// InDays returns a copy of q that reports lead times in days.
func (q Query) InDays() Query {
	q.Resolution = ResolutionDay
	return q
}

func (q Query) asOf() time.Time {
	if q.AsOf.IsZero() {
		return time.Now()
	}
	return q.AsOf
}

// stageIndices returns the selected indices, sorted in workflow order.
func stageIndices(stages []Stage) []int {
	idx := make([]int, 0, len(stages))
	for _, s := range stages {
		idx = append(idx, s.Index)
	}
	sort.Ints(idx)
	return idx
}

// DefaultPercentiles is the percentile selection used when none is configured.
var DefaultPercentiles = []int{30, 50, 70, 85, 95}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// msDay truncates a unix-millisecond timestamp to its UTC day.
func msDay(ms int64) time.Time {
	return truncateDay(time.UnixMilli(ms))
}
