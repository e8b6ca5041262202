package prioritization

import (
	"github.com/kazz187/eisenhower/internal/task"
)

const (
	uncategorizedReasoning = "Placed in plan as a fallback for uncategorized task."
	pinnedReasoning        = "Task had no priority; moved to plan."
)

// Reconcile merges the rule-based event placement and the pinned ids into
// the model's assignment and returns a partition of all: every task id
// appears in exactly one list, unknown ids are dropped, and ids missing from
// every list are appended to PLAN.
func Reconcile(ai Assignment, pre Preclassified, all []*task.Task, pinned []string) Assignment {
	known := make(map[string]bool, len(all))
	for _, t := range all {
		known[t.ID] = true
	}

	out := emptyAssignment(ai.Reasoning.Overall)
	for id, r := range pre.Reasoning {
		out.Reasoning.Individual[id] = r
	}
	for _, id := range pinned {
		if _, ok := out.Reasoning.Individual[id]; !ok {
			out.Reasoning.Individual[id] = pinnedReasoning
		}
	}
	for id, r := range ai.Reasoning.Individual {
		if _, ok := out.Reasoning.Individual[id]; !ok && known[id] {
			out.Reasoning.Individual[id] = r
		}
	}

	seen := make(map[string]bool, len(all))
	add := func(dst *[]string, ids []string) {
		for _, id := range ids {
			if !known[id] || seen[id] {
				continue
			}
			seen[id] = true
			*dst = append(*dst, id)
		}
	}
	// Rule-based placements are authoritative and lead their quadrants.
	add(&out.Do, pre.EventsForDo)
	add(&out.Plan, pre.EventsForPlan)
	add(&out.Plan, pinned)
	add(&out.Do, ai.Do)
	add(&out.Plan, ai.Plan)
	add(&out.Delegate, ai.Delegate)
	add(&out.Delete, ai.Delete)

	for _, t := range all {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out.Plan = append(out.Plan, t.ID)
		out.Reasoning.Individual[t.ID] = uncategorizedReasoning
	}
	return out
}
