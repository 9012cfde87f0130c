package flow

import (
	"testing"
)

func TestNormalize_StartsAndEnds(t *testing.T) {
	log := newLog("Todo", "Doing", "Done").
		enter("T1", 0, 0).
		move("T1", 2, 0, 1).
		move("T1", 5, 1, 2).
		build()

	records, stats := Normalize(log)
	if stats.Tasks != 1 {
		t.Fatalf("Tasks = %d, want 1", stats.Tasks)
	}
	if stats.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", stats.Skipped)
	}

	rec := records["T1"]
	if rec == nil {
		t.Fatal("expected record for T1")
	}
	if got := rec.Starts[1]; len(got) != 1 || got[0] != at(2) {
		t.Errorf("Starts[1] = %v, want [%d]", got, at(2))
	}
	if got := rec.Ends[1]; len(got) != 1 || got[0] != at(5) {
		t.Errorf("Ends[1] = %v, want [%d]", got, at(5))
	}
	if got := rec.Ends[2]; len(got) != 0 {
		t.Errorf("Ends[2] = %v, want empty (open interval)", got)
	}
}

func TestNormalize_RevisitsAreSorted(t *testing.T) {
	log := newLog("Todo", "Doing", "Review", "Done").
		enter("T1", 0, 0).
		move("T1", 1, 0, 1).
		move("T1", 3, 1, 2).
		move("T1", 4, 2, 1).
		move("T1", 6, 1, 2).
		build()

	records, _ := Normalize(log)
	rec := records["T1"]

	starts := rec.Starts[1]
	ends := rec.Ends[1]
	if len(starts) != 2 || len(ends) != 2 {
		t.Fatalf("stage 1 starts=%v ends=%v, want two of each", starts, ends)
	}
	if starts[0] != at(1) || starts[1] != at(4) {
		t.Errorf("starts = %v, want ascending [day1 day4]", starts)
	}
	if ends[0] != at(3) || ends[1] != at(6) {
		t.Errorf("ends = %v, want ascending [day3 day6]", ends)
	}
}

func TestNormalize_SkipsMalformed(t *testing.T) {
	ts := at(1)
	log := &Log{
		Stages: []Stage{{0, "Todo"}, {1, "Done"}},
		TransitionsByTimestamp: map[int64][]TransitionEvent{
			ts: {
				{Timestamp: ts, TaskKey: "ok", To: ptr(0)},
				{Timestamp: ts, TaskKey: "", To: ptr(0)},
				{Timestamp: ts, TaskKey: "no-dest", From: ptr(0)},
			},
			0: {
				{TaskKey: "no-time", To: ptr(1)},
			},
		},
	}

	records, stats := Normalize(log)
	if stats.Events != 4 {
		t.Errorf("Events = %d, want 4", stats.Events)
	}
	if stats.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", stats.Skipped)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if _, ok := records["ok"]; !ok {
		t.Error("expected record for 'ok'")
	}
}

func TestNormalize_TimestampFromMapKey(t *testing.T) {
	ts := at(2)
	log := &Log{
		Stages: []Stage{{0, "Todo"}},
		TransitionsByTimestamp: map[int64][]TransitionEvent{
			ts: {{TaskKey: "T1", To: ptr(0)}},
		},
	}
	records, stats := Normalize(log)
	if stats.Skipped != 0 {
		t.Fatalf("Skipped = %d, want 0", stats.Skipped)
	}
	if got := records["T1"].Starts[0]; len(got) != 1 || got[0] != ts {
		t.Errorf("Starts[0] = %v, want [%d]", got, ts)
	}
}

// A zero timestamp means the time is unknown, even at the epoch itself.
func TestNormalize_ZeroTimestampIsMissing(t *testing.T) {
	log := &Log{
		Stages: []Stage{{0, "Todo"}, {1, "Doing"}},
		TransitionsByTimestamp: map[int64][]TransitionEvent{
			0:     {{Timestamp: 0, TaskKey: "T1", To: ptr(0)}},
			at(1): {{Timestamp: at(1), TaskKey: "T1", From: ptr(0), To: ptr(1)}},
		},
	}

	records, stats := Normalize(log)
	if stats.Events != 2 || stats.Skipped != 1 {
		t.Fatalf("Events = %d, Skipped = %d, want 2 and 1", stats.Events, stats.Skipped)
	}
	rec := records["T1"]
	if rec == nil {
		t.Fatal("expected record for T1")
	}
	if got := rec.Starts[0]; len(got) != 0 {
		t.Errorf("Starts[0] = %v, want empty", got)
	}
	if got := rec.Starts[1]; len(got) != 1 || got[0] != at(1) {
		t.Errorf("Starts[1] = %v, want [%d]", got, at(1))
	}
}

func TestNormalize_NilLog(t *testing.T) {
	records, stats := Normalize(nil)
	if len(records) != 0 || stats.Events != 0 {
		t.Errorf("expected empty result, got %d records, %+v", len(records), stats)
	}
}
