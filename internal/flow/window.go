package flow

// IsActiveInWindow reports whether rec has a stay in any non-terminal stage
// overlapping w. Stays are compared by UTC day; an open stay is taken to run
// until w.To. Dwelling in the terminal stage never makes a task active.
func IsActiveInWindow(rec *ActivityRecord, stageCount int, w Window) bool {
	if rec == nil {
		return false
	}
	terminal := stageCount - 1

	for stage, starts := range rec.Starts {
		if stage >= terminal || stage < 0 {
			continue
		}
		ends := rec.Ends[stage]
		for i, start := range starts {
			startDay := msDay(start)
			endDay := w.To
			if i < len(ends) {
				endDay = msDay(ends[i])
			}
			if !startDay.After(w.To) && !endDay.Before(w.From) {
				return true
			}
		}
	}
	return false
}

// IsInStageNow reports whether the task currently sits in stage: its most
// recent entry there is not followed by a later exit.
func IsInStageNow(rec *ActivityRecord, stage int) bool {
	if rec == nil {
		return false
	}
	last, ok := rec.lastStart(stage)
	if !ok {
		return false
	}
	ends := rec.Ends[stage]
	return len(ends) == 0 || last >= ends[len(ends)-1]
}
