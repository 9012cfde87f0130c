package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDurations_Scenario(t *testing.T) {
	log := newLog("Todo", "Doing", "Done").
		enter("T1", 0, 0).
		move("T1", 2, 0, 1).
		move("T1", 5, 1, 2).
		build()
	records, _ := Normalize(log)
	rec := records["T1"]
	asOf := time.UnixMilli(at(10))

	got := ComputeDurations(rec, []int{0, 1, 2}, 2, asOf)
	assert.Equal(t, 2*day, got[0])
	assert.Equal(t, 3*day, got[1])

	terminal, ok := got[2]
	require.True(t, ok, "terminal stage was entered, so it must be present")
	assert.Equal(t, time.Duration(0), terminal)

	assert.Equal(t, 5*day, ComputeLeadTime(rec, []int{0, 1}, 2, asOf))
}

func TestComputeDurations_OpenInterval(t *testing.T) {
	tests := []struct {
		name   string
		stages []string
		want   time.Duration
	}{
		{"non-terminal stage runs to asOf", []string{"A", "B", "C", "D"}, 5 * day},
		{"terminal stage contributes nothing", []string{"A", "B", "C"}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log := newLog(tc.stages...).move("T", 1, 1, 2).build()
			records, _ := Normalize(log)
			asOf := time.UnixMilli(at(6))

			got := ComputeDurations(records["T"], []int{2}, len(tc.stages)-1, asOf)
			assert.Equal(t, tc.want, got[2])
		})
	}
}

func TestComputeDurations_Revisits(t *testing.T) {
	log := newLog("Todo", "Doing", "Review", "Done").
		enter("T1", 0, 0).
		move("T1", 1, 0, 1).
		move("T1", 3, 1, 2).
		move("T1", 4, 2, 1).
		move("T1", 6, 1, 3).
		build()
	records, _ := Normalize(log)

	got := ComputeDurations(records["T1"], []int{1, 2}, 3, time.UnixMilli(at(20)))
	assert.Equal(t, 4*day, got[1], "two visits: 2d + 2d")
	assert.Equal(t, 1*day, got[2])
}

func TestComputeDurations_AbsentVersusZero(t *testing.T) {
	log := newLog("Todo", "Doing", "Done").
		enter("T1", 1, 0).
		move("T1", 1, 0, 2).
		build()
	records, _ := Normalize(log)

	got := ComputeDurations(records["T1"], []int{0, 1}, 2, time.UnixMilli(at(5)))
	d, ok := got[0]
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), d)

	_, ok = got[1]
	assert.False(t, ok, "never-entered stage must be absent")
}

func TestComputeDurations_ClampsAnomalies(t *testing.T) {
	rec := &ActivityRecord{
		Key: "T",
		Starts: map[int][]int64{
			0: {at(5), at(6), at(9)},
		},
		Ends: map[int][]int64{
			0: {at(3)},
		},
	}

	got := ComputeDurations(rec, []int{0}, 2, time.UnixMilli(at(10)))
	// start 5 / end 3 is negative and clamps; start 6 has no end and is not
	// the latest entry; start 9 is open and runs to day 10.
	assert.Equal(t, 1*day, got[0])
}

func TestComputeDurations_NonNegative(t *testing.T) {
	log := newLog("A", "B", "C", "D").
		enter("T1", 3, 0).
		move("T1", 1, 0, 1).
		move("T1", 2, 1, 0).
		move("T1", 0.5, 0, 3).
		enter("T2", 4, 1).
		move("T2", 2, 1, 2).
		build()
	records, _ := Normalize(log)

	for key, rec := range records {
		for _, asOf := range []float64{0, 2, 10} {
			got := ComputeDurations(rec, []int{0, 1, 2, 3}, 3, time.UnixMilli(at(asOf)))
			for stage, d := range got {
				assert.GreaterOrEqualf(t, d, time.Duration(0), "task %s stage %d asOf %v", key, stage, asOf)
			}
		}
	}
}

func TestComputeLeadTime_Additive(t *testing.T) {
	log := newLog("A", "B", "C", "D", "E").
		enter("T1", 0, 0).
		move("T1", 1.5, 0, 1).
		move("T1", 4, 1, 2).
		move("T1", 4.25, 2, 1).
		move("T1", 7, 1, 3).
		build()
	records, _ := Normalize(log)
	rec := records["T1"]
	asOf := time.UnixMilli(at(12))

	a := []int{0, 2}
	b := []int{1, 3}
	union := []int{0, 1, 2, 3}

	assert.Equal(t,
		ComputeLeadTime(rec, union, 4, asOf),
		ComputeLeadTime(rec, a, 4, asOf)+ComputeLeadTime(rec, b, 4, asOf),
	)
}

func TestComputeDurations_NilRecord(t *testing.T) {
	got := ComputeDurations(nil, []int{0}, 1, time.Now())
	assert.Empty(t, got)
}
