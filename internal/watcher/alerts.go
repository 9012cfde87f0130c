package watcher

import (
	"fmt"
	"sort"
	"time"
)

// spikeRatio is the relative change that counts as a spike or an easing.
const spikeRatio = 0.20

// Compare detects notable changes between two watch states and returns alerts.
// It checks for critical, warning, and info-level changes.
func Compare(prev, curr *State) []Alert {
	var alerts []Alert

	alerts = append(alerts, compareCritical(prev, curr)...)
	alerts = append(alerts, compareWarning(prev, curr)...)
	alerts = append(alerts, compareInfo(prev, curr)...)

	return alerts
}

// compareCritical detects critical-level changes.
func compareCritical(prev, curr *State) []Alert {
	var alerts []Alert
	now := time.Now()

	// A task crossed its stage's highest percentile since the last check.
	for _, key := range sortedKeys(curr.Overdue) {
		if _, was := prev.Overdue[key]; was {
			continue
		}
		t := curr.Overdue[key]
		alerts = append(alerts, Alert{
			Level:   "critical",
			Title:   fmt.Sprintf("Aging past P%d: %s", t.Rank, key),
			Message: fmt.Sprintf("%d days in %s, older than %d%% of past work", t.Days, t.Stage, t.Rank),
			Time:    now,
		})
	}

	return alerts
}

// compareWarning detects warning-level changes.
func compareWarning(prev, curr *State) []Alert {
	var alerts []Alert
	now := time.Now()

	// WIP rose by more than spikeRatio in a stage.
	for _, stage := range sortedKeys(curr.WIP) {
		prevCount, currCount := prev.WIP[stage], curr.WIP[stage]
		if prevCount == 0 || currCount <= prevCount {
			continue
		}
		increase := float64(currCount-prevCount) / float64(prevCount)
		if increase > spikeRatio {
			alerts = append(alerts, Alert{
				Level:   "warning",
				Title:   fmt.Sprintf("WIP spike: %s", stage),
				Message: fmt.Sprintf("Increased from %d to %d (+%.0f%%)", prevCount, currCount, increase*100),
				Time:    now,
			})
		}
	}

	// Lead time P85 grew by more than spikeRatio.
	if prev.LeadTimeP85 > 0 && curr.LeadTimeP85 > prev.LeadTimeP85 {
		increase := float64(curr.LeadTimeP85-prev.LeadTimeP85) / float64(prev.LeadTimeP85)
		if increase > spikeRatio {
			alerts = append(alerts, Alert{
				Level:   "warning",
				Title:   "Lead time rising",
				Message: fmt.Sprintf("P85 went from %d to %d", prev.LeadTimeP85, curr.LeadTimeP85),
				Time:    now,
			})
		}
	}

	// Predictability ratio left the healthy range.
	if curr.Predictability > 2 && prev.Predictability > 0 && prev.Predictability <= 2 {
		alerts = append(alerts, Alert{
			Level:   "warning",
			Title:   "Predictability dropped",
			Message: fmt.Sprintf("P95/P50 is %.1f (was %.1f)", curr.Predictability, prev.Predictability),
			Time:    now,
		})
	}

	return alerts
}

// compareInfo detects informational changes.
func compareInfo(prev, curr *State) []Alert {
	var alerts []Alert
	now := time.Now()

	// Newly completed tasks.
	var done []string
	for _, key := range sortedKeys(curr.Completed) {
		if !prev.Completed[key] {
			done = append(done, key)
		}
	}
	if len(done) > 0 {
		alerts = append(alerts, Alert{
			Level:   "info",
			Title:   fmt.Sprintf("%d task(s) completed", len(done)),
			Message: joinKeys(done, 5),
			Time:    now,
		})
	}

	// WIP eased by more than spikeRatio in a stage.
	for _, stage := range sortedKeys(prev.WIP) {
		prevCount, currCount := prev.WIP[stage], curr.WIP[stage]
		if prevCount == 0 || currCount >= prevCount {
			continue
		}
		decrease := float64(prevCount-currCount) / float64(prevCount)
		if decrease > spikeRatio {
			alerts = append(alerts, Alert{
				Level:   "info",
				Title:   fmt.Sprintf("WIP eased: %s", stage),
				Message: fmt.Sprintf("Decreased from %d to %d (-%.0f%%)", prevCount, currCount, decrease*100),
				Time:    now,
			})
		}
	}

	// Overdue tasks that moved on or finished.
	for _, key := range sortedKeys(prev.Overdue) {
		if _, still := curr.Overdue[key]; still {
			continue
		}
		alerts = append(alerts, Alert{
			Level:   "info",
			Title:   fmt.Sprintf("No longer aging: %s", key),
			Message: fmt.Sprintf("Left %s after %d+ days", prev.Overdue[key].Stage, prev.Overdue[key].Days),
			Time:    now,
		})
	}

	return alerts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// joinKeys lists up to limit keys and summarizes the rest.
func joinKeys(keys []string, limit int) string {
	if len(keys) <= limit {
		return fmt.Sprint(keys)
	}
	return fmt.Sprintf("%v and %d more", keys[:limit], len(keys)-limit)
}
