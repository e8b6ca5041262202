package prioritization

import (
	"fmt"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/eisenhower/internal/task"
)

// Change is a task whose quadrant differs between two passes.
type Change struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	From  task.Priority `json:"from"`
	To    task.Priority `json:"to"`
}

func Changes(before []*task.Task, a Assignment) []Change {
	to := a.Priorities()
	var out []Change
	for _, t := range before {
		p, ok := to[t.ID]
		if !ok || p == t.Priority {
			continue
		}
		out = append(out, Change{ID: t.ID, Title: t.Title, From: t.Priority, To: p})
	}
	return out
}

// matrixLines renders one line per task, grouped by quadrant, for diffing.
func matrixLines(titles map[string]string, byQuadrant map[task.Priority][]string) []string {
	var lines []string
	for _, q := range append([]task.Priority{task.PriorityNone}, task.Quadrants...) {
		ids := byQuadrant[q]
		if len(ids) == 0 {
			continue
		}
		name := string(q)
		if q == task.PriorityNone {
			name = "unprioritized"
		}
		lines = append(lines, fmt.Sprintf("[%s]\n", name))
		for _, id := range ids {
			lines = append(lines, fmt.Sprintf("  %s %s\n", id, titles[id]))
		}
	}
	return lines
}

// Diff is a unified diff of the matrix before and after the assignment.
// It is empty when nothing moves.
func Diff(before []*task.Task, a Assignment) (string, error) {
	titles := make(map[string]string, len(before))
	old := map[task.Priority][]string{}
	for _, t := range before {
		titles[t.ID] = t.Title
		old[t.Priority] = append(old[t.Priority], t.ID)
	}
	rank := map[string]int{}
	for _, t := range before {
		if t.InGroupRank != nil {
			rank[t.ID] = *t.InGroupRank
		}
	}
	for _, ids := range old {
		sort.SliceStable(ids, func(i, j int) bool { return rank[ids[i]] < rank[ids[j]] })
	}
	next := map[task.Priority][]string{}
	for _, q := range task.Quadrants {
		next[q] = a.List(q)
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        matrixLines(titles, old),
		B:        matrixLines(titles, next),
		FromFile: "before",
		ToFile:   "after",
		Context:  1,
	})
}
