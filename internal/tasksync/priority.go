package tasksync

import (
	"context"
	"log/slog"
	"time"

	"github.com/kazz187/eisenhower/internal/task"
)

// Placement is one task's quadrant in a finished assignment. Placements are
// given in quadrant list order, which decides rank order for new entrants.
type Placement struct {
	ID        string
	Priority  task.Priority
	Reasoning string
}

// Ranks computes in-group ranks for placements into DO and PLAN. A task that
// stays in its quadrant keeps its rank; a task entering one (or staying
// without a rank) is appended after the highest kept rank. DELEGATE and
// DELETE map to nil.
func Ranks(tasks []*task.Task, placements []Placement) map[string]*int {
	byID := task.ByID(tasks)
	kept := func(pl Placement) (*int, bool) {
		t, ok := byID[pl.ID]
		if !ok || t.Priority != pl.Priority || t.InGroupRank == nil {
			return nil, false
		}
		r := *t.InGroupRank
		return &r, true
	}

	next := map[task.Priority]int{task.PriorityDo: 0, task.PriorityPlan: 0}
	out := make(map[string]*int, len(placements))
	for _, pl := range placements {
		if !pl.Priority.Ranked() {
			continue
		}
		if r, ok := kept(pl); ok {
			out[pl.ID] = r
			next[pl.Priority] = max(next[pl.Priority], *r)
		}
	}
	for _, pl := range placements {
		if !pl.Priority.Ranked() {
			out[pl.ID] = nil
			continue
		}
		if _, ok := out[pl.ID]; ok {
			continue
		}
		next[pl.Priority]++
		r := next[pl.Priority]
		out[pl.ID] = &r
	}
	return out
}

// ApplyAssignment writes priority, rank, reasoning and PrioritizedAt = now
// for every placement.
func (s *Syncer) ApplyAssignment(ctx context.Context, tasks []*task.Task, placements []Placement, now time.Time) Report {
	ranks := Ranks(tasks, placements)
	writes := make([]write, 0, len(placements))
	for _, pl := range placements {
		prio := pl.Priority
		reasoning := pl.Reasoning
		patch := task.Patch{
			Priority:          &prio,
			PrioritizedAt:     &now,
			PriorityReasoning: &reasoning,
		}
		if r := ranks[pl.ID]; r != nil {
			patch.InGroupRank = r
		} else {
			patch.ClearRank = true
		}
		writes = append(writes, write{id: pl.ID, patch: patch})
	}
	_, report := s.apply(ctx, writes)
	if report.Partial() {
		slog.WarnContext(ctx, "prioritization completed with partial persistence",
			"written", report.Written, "failed", len(report.Failed))
	}
	return report
}

const sweepReasoning = "Task had no priority; moved to plan."

// SweepNullPriority moves every active task without a priority to PLAN,
// appended after the current PLAN ranks. It is best effort: failures are
// logged and reported. The returned slice is tasks with the swept entries
// replaced by their stored versions; swept holds the ids written.
func (s *Syncer) SweepNullPriority(ctx context.Context, tasks []*task.Task, now time.Time) (out []*task.Task, swept []string, report Report) {
	maxPlan := 0
	for _, t := range tasks {
		if t.Priority == task.PriorityPlan && t.InGroupRank != nil {
			maxPlan = max(maxPlan, *t.InGroupRank)
		}
	}
	plan := task.PriorityPlan
	reasoning := sweepReasoning
	var writes []write
	for _, t := range tasks {
		if t.IsDone || t.Priority != task.PriorityNone {
			continue
		}
		maxPlan++
		rank := maxPlan
		writes = append(writes, write{id: t.ID, patch: task.Patch{
			Priority:          &plan,
			InGroupRank:       &rank,
			PrioritizedAt:     &now,
			PriorityReasoning: &reasoning,
		}})
	}
	if len(writes) == 0 {
		return tasks, nil, Report{}
	}
	updated, report := s.apply(ctx, writes)
	out = make([]*task.Task, len(tasks))
	for i, t := range tasks {
		if u, ok := updated[t.ID]; ok {
			out[i] = u
			swept = append(swept, t.ID)
			continue
		}
		out[i] = t
	}
	if report.Partial() {
		slog.WarnContext(ctx, "null priority sweep failed for some tasks", "failed", report.Failed)
	}
	return out, swept, report
}
