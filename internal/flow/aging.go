package flow

import "math"

// agingGroupSpan is how close, in days, a task's age must be to a group's
// anchor age to join that group.
const agingGroupSpan = 5

// AgingTask is one task sitting in a stage.
type AgingTask struct {
	TaskKey   string `json:"task_key"`
	AgingDays int    `json:"aging_days"`
}

// AgingGroup is a cluster of tasks with similar age in one stage.
type AgingGroup struct {
	Position  int         `json:"x"`
	AgingDays int         `json:"y"`
	TaskCount int         `json:"task_count"`
	Tasks     []AgingTask `json:"tasks"`
}

// StageAging is the aging chart column of one stage.
type StageAging struct {
	Stage  Stage        `json:"stage"`
	Groups []AgingGroup `json:"groups"`
}

// StageWIP is the number of tasks currently in a stage.
type StageWIP struct {
	Stage Stage    `json:"stage"`
	Count int      `json:"count"`
	Tasks []string `json:"tasks"`
}

// agingDays converts a lead time to whole days, rounding up.
func agingDays(t TaskDuration) int {
	return int(math.Ceil(ConvertToResolution(t.Total, ResolutionDay)))
}

// groupAging clusters tasks in input order: a task joins the first group
// whose anchor age is within agingGroupSpan days, otherwise it starts one.
func groupAging(position int, tasks []AgingTask) []AgingGroup {
	groups := []AgingGroup{}
	for _, t := range tasks {
		joined := false
		for i := range groups {
			if abs(groups[i].AgingDays-t.AgingDays) <= agingGroupSpan {
				groups[i].TaskCount++
				groups[i].Tasks = append(groups[i].Tasks, t)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, AgingGroup{
				Position:  position,
				AgingDays: t.AgingDays,
				TaskCount: 1,
				Tasks:     []AgingTask{t},
			})
		}
	}
	return groups
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
