package prioritization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/eisenhower/internal/completion"
	"github.com/kazz187/eisenhower/internal/task"
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func event(id string, at *time.Time) *task.Task {
	return &task.Task{ID: id, Type: task.TypeEvent, TaskDate: at}
}

func deadline(id string) *task.Task {
	return &task.Task{ID: id, Type: task.TypeDeadline, TaskDate: ptr(now.AddDate(0, 0, 7))}
}

func TestPreclassify(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	tasks := []*task.Task{
		event("today", ptr(now.Add(6*time.Hour))),
		event("past", ptr(now.AddDate(0, 0, -2))),
		event("future", ptr(now.AddDate(0, 0, 3))),
		event("undated", nil),
		deadline("d1"),
	}

	t.Run("utc", func(t *testing.T) {
		pre := Preclassify(tasks, now, time.UTC)
		assert.Equal(t, []string{"today", "past"}, pre.EventsForDo)
		assert.Equal(t, []string{"future", "undated"}, pre.EventsForPlan)
		assert.NotContains(t, pre.Reasoning, "d1")
		assert.Contains(t, pre.Reasoning["past"], "2 day(s) ago")
		assert.Contains(t, pre.Reasoning["future"], "in 3 day(s)")
	})

	t.Run("calendar date follows the location", func(t *testing.T) {
		// 23:30 UTC on the 2nd is already the 3rd in Tokyo, while now is
		// still the 2nd there.
		late := []*task.Task{event("late", ptr(time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)))}
		assert.Equal(t, []string{"late"}, Preclassify(late, now, time.UTC).EventsForDo)
		assert.Equal(t, []string{"late"}, Preclassify(late, now, tokyo).EventsForPlan)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Preclassify(tasks, now, time.UTC), Preclassify(tasks, now, time.UTC))
	})
}

func TestQuarter(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		do       []string
		plan     []string
		delegate []string
		del      []string
	}{
		{name: "empty", ids: nil, do: []string{}, plan: []string{}, delegate: []string{}, del: []string{}},
		{name: "three", ids: []string{"a", "b", "c"}, do: []string{"a"}, plan: []string{"b"}, delegate: []string{"c"}, del: []string{}},
		{name: "four", ids: []string{"a", "b", "c", "d"}, do: []string{"a"}, plan: []string{"b"}, delegate: []string{"c"}, del: []string{"d"}},
		{name: "five", ids: []string{"a", "b", "c", "d", "e"}, do: []string{"a", "b"}, plan: []string{"c", "d"}, delegate: []string{"e"}, del: []string{}},
		{name: "nine", ids: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}, do: []string{"1", "2", "3"}, plan: []string{"4", "5", "6"}, delegate: []string{"7", "8", "9"}, del: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Quarter(tt.ids, FailureUnavailable)
			assert.Equal(t, tt.do, a.Do)
			assert.Equal(t, tt.plan, a.Plan)
			assert.Equal(t, tt.delegate, a.Delegate)
			assert.Equal(t, tt.del, a.Delete)
			assert.Equal(t, len(tt.ids), a.Total())
			assert.Len(t, a.Reasoning.Individual, len(tt.ids))
			assert.Contains(t, a.Reasoning.Overall, "service unavailable")
		})
	}
}

func TestParseAssignment(t *testing.T) {
	t.Run("object wrapped in prose and fences", func(t *testing.T) {
		a, err := ParseAssignment("Sure!\n```json\n{\"do\":[\"a\"],\"plan\":[\"b\",\"c\"],\"reasoning\":{\"overall\":\"ok\",\"individual\":{\"a\":\"due today\"}}}\n```\nThanks")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, a.Do)
		assert.Equal(t, []string{"b", "c"}, a.Plan)
		assert.Equal(t, []string{}, a.Delegate)
		assert.Equal(t, []string{}, a.Delete)
		assert.Equal(t, "ok", a.Reasoning.Overall)
		assert.Equal(t, "due today", a.Reasoning.Individual["a"])
	})

	t.Run("bare string reasoning", func(t *testing.T) {
		a, err := ParseAssignment(`{"delete":["x"],"reasoning":"all low value"}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, a.Delete)
		assert.Equal(t, "all low value", a.Reasoning.Overall)
		assert.Empty(t, a.Reasoning.Individual)
	})

	t.Run("null lists default to empty", func(t *testing.T) {
		a, err := ParseAssignment(`{"do":null,"plan":["p"]}`)
		require.NoError(t, err)
		assert.Equal(t, []string{}, a.Do)
		assert.Equal(t, []string{"p"}, a.Plan)
	})

	failures := map[string]string{
		"no object":               `I could not do that.`,
		"quadrant not an array":   `{"do":"a"}`,
		"non-string array member": `{"do":["a",1]}`,
		"reasoning wrong kind":    `{"do":[],"reasoning":42}`,
		"overall wrong kind":      `{"reasoning":{"overall":["x"]}}`,
		"individual wrong kind":   `{"reasoning":{"individual":"x"}}`,
		"individual non-string":   `{"reasoning":{"individual":{"a":1}}}`,
		"truncated":               `{"do":["a"`,
	}
	for name, text := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAssignment(text)
			require.Error(t, err)
			assert.True(t, IsParseFailure(err))
		})
	}
}

func TestReconcile(t *testing.T) {
	all := []*task.Task{
		event("ev", ptr(now)),
		deadline("a"),
		deadline("b"),
		deadline("c"),
		deadline("pinned"),
	}
	pre := Preclassify(all, now, time.UTC)
	ai := Assignment{
		Do:       []string{"b", "ghost"},
		Plan:     []string{"ev"},
		Delegate: []string{"b", "pinned"},
		Delete:   []string{},
		Reasoning: Reasoning{
			Overall:    "model",
			Individual: map[string]string{"b": "hot", "ghost": "?", "ev": "model says plan"},
		},
	}
	got := Reconcile(ai, pre, all, []string{"pinned"})

	assert.Equal(t, []string{"ev", "b"}, got.Do)
	assert.Equal(t, []string{"pinned", "a", "c"}, got.Plan)
	assert.Equal(t, []string{}, got.Delegate)
	assert.Equal(t, []string{}, got.Delete)
	assert.Equal(t, "model", got.Reasoning.Overall)
	assert.Equal(t, "Event is today.", got.Reasoning.Individual["ev"])
	assert.Equal(t, "hot", got.Reasoning.Individual["b"])
	assert.Equal(t, uncategorizedReasoning, got.Reasoning.Individual["a"])
	assert.Equal(t, pinnedReasoning, got.Reasoning.Individual["pinned"])
	assert.NotContains(t, got.Reasoning.Individual, "ghost")
}

func TestReconcilePartition(t *testing.T) {
	all := []*task.Task{deadline("a"), deadline("b"), deadline("c"), event("e1", ptr(now)), event("e2", nil)}
	pre := Preclassify(all, now, time.UTC)
	inputs := []Assignment{
		{},
		{Do: []string{"a", "a", "a"}},
		{Do: []string{"e2"}, Plan: []string{"e1"}, Delegate: []string{"c"}, Delete: []string{"c", "b", "x"}},
		Quarter([]string{"c", "b", "a"}, FailureParse),
	}
	for _, ai := range inputs {
		got := Reconcile(ai, pre, all, nil)
		seen := map[string]int{}
		for _, q := range task.Quadrants {
			for _, id := range got.List(q) {
				seen[id]++
			}
		}
		assert.Len(t, seen, len(all))
		for _, tk := range all {
			assert.Equal(t, 1, seen[tk.ID], tk.ID)
		}
		assert.Equal(t, []string{"e1"}, got.Do[:1])
	}
}

func TestPrioritizer(t *testing.T) {
	tasks := []*task.Task{deadline("a"), deadline("b"), deadline("c")}
	in := Input{Tasks: tasks, Now: now, Location: time.UTC}

	t.Run("model answer", func(t *testing.T) {
		var req completion.Request
		p := NewPrioritizer(completion.Func(func(_ context.Context, r completion.Request) (string, error) {
			req = r
			return `{"do":["c"],"plan":["a"],"delegate":["b"],"delete":[]}`, nil
		}))
		res := p.Prioritize(context.Background(), in)
		assert.Equal(t, FailureNone, res.Fallback)
		assert.Equal(t, []string{"c"}, res.Assignment.Do)
		assert.Equal(t, "prioritize", req.Operation)
		assert.Contains(t, req.Prompt, `"id": "a"`)
	})

	t.Run("completion error falls back", func(t *testing.T) {
		p := NewPrioritizer(completion.Func(func(context.Context, completion.Request) (string, error) {
			return "", errors.New("connection reset")
		}))
		res := p.Prioritize(context.Background(), in)
		assert.Equal(t, FailureUnavailable, res.Fallback)
		assert.Equal(t, Quarter(task.IDs(tasks), FailureUnavailable), res.Assignment)
	})

	t.Run("garbage falls back", func(t *testing.T) {
		p := NewPrioritizer(completion.Func(func(context.Context, completion.Request) (string, error) {
			return "no json here", nil
		}))
		res := p.Prioritize(context.Background(), in)
		assert.Equal(t, FailureParse, res.Fallback)
		assert.Equal(t, 3, res.Assignment.Total())
	})

	t.Run("no tasks skips the completion", func(t *testing.T) {
		p := NewPrioritizer(completion.Func(func(context.Context, completion.Request) (string, error) {
			t.Fatal("completion must not be called")
			return "", nil
		}))
		res := p.Prioritize(context.Background(), Input{Now: now})
		assert.Zero(t, res.Assignment.Total())
		assert.Equal(t, FailureNone, res.Fallback)
	})
}

func TestDiff(t *testing.T) {
	before := []*task.Task{
		{ID: "a", Title: "Write report", Priority: task.PriorityPlan, InGroupRank: ptr(1)},
		{ID: "b", Title: "Call bank", Priority: task.PriorityDo, InGroupRank: ptr(1)},
	}
	a := Assignment{Do: []string{"a", "b"}}
	changes := Changes(before, a)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{ID: "a", Title: "Write report", From: task.PriorityPlan, To: task.PriorityDo}, changes[0])

	diff, err := Diff(before, a)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- before")
	assert.Contains(t, diff, "+++ after")
	assert.Contains(t, diff, "+  a Write report")
	assert.Contains(t, diff, "-[plan]")

	same, err := Diff(before, Assignment{Do: []string{"b"}, Plan: []string{"a"}})
	require.NoError(t, err)
	assert.Empty(t, same)
}
