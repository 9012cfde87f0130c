package flow

import "time"

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// at returns base plus n days as unix milliseconds.
func at(days float64) int64 {
	return base.Add(time.Duration(days * float64(day))).UnixMilli()
}

func ptr(i int) *int { return &i }

// logBuilder assembles a transition log in tests.
type logBuilder struct {
	log *Log
}

func newLog(stageNames ...string) *logBuilder {
	l := &Log{TransitionsByTimestamp: make(map[int64][]TransitionEvent)}
	for i, n := range stageNames {
		l.Stages = append(l.Stages, Stage{Index: i, Name: n})
	}
	return &logBuilder{log: l}
}

// enter records the task entering stage `to` on day d from nowhere.
func (b *logBuilder) enter(key string, d float64, to int) *logBuilder {
	ts := at(d)
	b.log.TransitionsByTimestamp[ts] = append(b.log.TransitionsByTimestamp[ts],
		TransitionEvent{Timestamp: ts, TaskKey: key, To: ptr(to)})
	return b
}

// move records the task moving from one stage to another on day d.
func (b *logBuilder) move(key string, d float64, from, to int) *logBuilder {
	ts := at(d)
	b.log.TransitionsByTimestamp[ts] = append(b.log.TransitionsByTimestamp[ts],
		TransitionEvent{Timestamp: ts, TaskKey: key, From: ptr(from), To: ptr(to)})
	return b
}

func (b *logBuilder) build() *Log { return b.log }

func windowDays(from, to float64) Window {
	w, err := NewWindow(time.UnixMilli(at(from)), time.UnixMilli(at(to)))
	if err != nil {
		panic(err)
	}
	return w
}
