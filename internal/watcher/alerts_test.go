package watcher

import (
	"strings"
	"testing"
)

func makeState() *State {
	return &State{
		WIP:       make(map[string]int),
		Completed: make(map[string]bool),
		Overdue:   make(map[string]OverdueTask),
	}
}

func findAlert(alerts []Alert, level, title string) (Alert, bool) {
	for _, a := range alerts {
		if a.Level == level && a.Title == title {
			return a, true
		}
	}
	return Alert{}, false
}

func TestCompare_NoChanges(t *testing.T) {
	prev := makeState()
	prev.WIP["Doing"] = 4
	prev.TotalWIP = 4
	prev.Completed["T1"] = true
	prev.LeadTimeP85 = 10
	prev.Predictability = 1.8

	curr := makeState()
	curr.WIP["Doing"] = 4
	curr.TotalWIP = 4
	curr.Completed["T1"] = true
	curr.LeadTimeP85 = 10
	curr.Predictability = 1.8

	alerts := Compare(prev, curr)
	if len(alerts) != 0 {
		t.Errorf("expected 0 alerts for identical states, got %d", len(alerts))
		for _, a := range alerts {
			t.Logf("  [%s] %s: %s", a.Level, a.Title, a.Message)
		}
	}
}

func TestCompare_IdenticalStates(t *testing.T) {
	alerts := Compare(makeState(), makeState())
	if len(alerts) != 0 {
		t.Errorf("expected 0 alerts for empty identical states, got %d", len(alerts))
	}
}

func TestCompare_NewlyOverdue(t *testing.T) {
	prev := makeState()
	curr := makeState()
	curr.Overdue["T7"] = OverdueTask{Stage: "Review", Days: 12, Rank: 95}

	alerts := Compare(prev, curr)
	a, ok := findAlert(alerts, "critical", "Aging past P95: T7")
	if !ok {
		t.Fatalf("expected critical aging alert, got %+v", alerts)
	}
	if !strings.Contains(a.Message, "12 days in Review") {
		t.Errorf("unexpected message %q", a.Message)
	}

	// Already overdue last cycle: nothing new.
	if again := Compare(curr, curr); len(again) != 0 {
		t.Errorf("expected no alerts for unchanged overdue set, got %+v", again)
	}
}

func TestCompare_WIPSpike(t *testing.T) {
	tests := []struct {
		name      string
		prev      int
		curr      int
		wantAlert bool
	}{
		{name: "above threshold", prev: 4, curr: 6, wantAlert: true},
		{name: "at threshold", prev: 5, curr: 6, wantAlert: false},
		{name: "from zero", prev: 0, curr: 3, wantAlert: false},
		{name: "decrease", prev: 6, curr: 4, wantAlert: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prev := makeState()
			prev.WIP["Doing"] = tc.prev
			curr := makeState()
			curr.WIP["Doing"] = tc.curr

			_, got := findAlert(Compare(prev, curr), "warning", "WIP spike: Doing")
			if got != tc.wantAlert {
				t.Errorf("WIP spike alert = %v, want %v", got, tc.wantAlert)
			}
		})
	}
}

func TestCompare_LeadTimeRising(t *testing.T) {
	prev := makeState()
	prev.LeadTimeP85 = 10
	curr := makeState()
	curr.LeadTimeP85 = 13

	a, ok := findAlert(Compare(prev, curr), "warning", "Lead time rising")
	if !ok {
		t.Fatal("expected lead time warning")
	}
	if a.Message != "P85 went from 10 to 13" {
		t.Errorf("unexpected message %q", a.Message)
	}

	curr.LeadTimeP85 = 12
	if _, ok := findAlert(Compare(prev, curr), "warning", "Lead time rising"); ok {
		t.Error("a 20% rise should not alert")
	}
}

func TestCompare_PredictabilityDropped(t *testing.T) {
	tests := []struct {
		name      string
		prev      float64
		curr      float64
		wantAlert bool
	}{
		{name: "crosses 2", prev: 1.9, curr: 2.4, wantAlert: true},
		{name: "already above", prev: 2.5, curr: 3.1, wantAlert: false},
		{name: "unknown before", prev: 0, curr: 3.1, wantAlert: false},
		{name: "stays healthy", prev: 1.5, curr: 2.0, wantAlert: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prev := makeState()
			prev.Predictability = tc.prev
			curr := makeState()
			curr.Predictability = tc.curr

			_, got := findAlert(Compare(prev, curr), "warning", "Predictability dropped")
			if got != tc.wantAlert {
				t.Errorf("predictability alert = %v, want %v", got, tc.wantAlert)
			}
		})
	}
}

func TestCompare_Completed(t *testing.T) {
	prev := makeState()
	prev.Completed["T1"] = true
	curr := makeState()
	curr.Completed["T1"] = true
	curr.Completed["T3"] = true
	curr.Completed["T2"] = true

	a, ok := findAlert(Compare(prev, curr), "info", "2 task(s) completed")
	if !ok {
		t.Fatal("expected completion alert")
	}
	if a.Message != "[T2 T3]" {
		t.Errorf("expected sorted keys, got %q", a.Message)
	}
}

func TestCompare_WIPEased(t *testing.T) {
	prev := makeState()
	prev.WIP["Review"] = 5
	curr := makeState()
	curr.WIP["Review"] = 2

	a, ok := findAlert(Compare(prev, curr), "info", "WIP eased: Review")
	if !ok {
		t.Fatal("expected WIP eased alert")
	}
	if a.Message != "Decreased from 5 to 2 (-60%)" {
		t.Errorf("unexpected message %q", a.Message)
	}
}

func TestCompare_NoLongerAging(t *testing.T) {
	prev := makeState()
	prev.Overdue["T4"] = OverdueTask{Stage: "Doing", Days: 20, Rank: 85}
	curr := makeState()

	a, ok := findAlert(Compare(prev, curr), "info", "No longer aging: T4")
	if !ok {
		t.Fatal("expected resolved alert")
	}
	if a.Message != "Left Doing after 20+ days" {
		t.Errorf("unexpected message %q", a.Message)
	}
}

func TestJoinKeys(t *testing.T) {
	if got := joinKeys([]string{"A", "B"}, 5); got != "[A B]" {
		t.Errorf("got %q", got)
	}
	if got := joinKeys([]string{"A", "B", "C", "D"}, 2); got != "[A B] and 2 more" {
		t.Errorf("got %q", got)
	}
}
