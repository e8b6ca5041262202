package prioritization

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kazz187/eisenhower/internal/completion"
	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/internal/task"
)

type Input struct {
	// Tasks are the non-event tasks to place, in input order.
	Tasks    []*task.Task
	Rules    string
	Tier     profile.Tier
	Now      time.Time
	Location *time.Location
}

// FailureClass names why the deterministic fallback was used.
type FailureClass string

const (
	FailureNone        FailureClass = ""
	FailureParse       FailureClass = "parse failure"
	FailureUnavailable FailureClass = "service unavailable"
)

type Result struct {
	Assignment Assignment
	Fallback   FailureClass
}

type Prioritizer struct {
	completer completion.Completer
}

func NewPrioritizer(c completion.Completer) *Prioritizer {
	return &Prioritizer{completer: c}
}

// Prioritize asks the completion service for a quadrant assignment. It never
// fails: without tasks it returns empty lists, and on a completion or parse
// error it falls back to Quarter.
func (p *Prioritizer) Prioritize(ctx context.Context, in Input) Result {
	if len(in.Tasks) == 0 {
		return Result{Assignment: emptyAssignment("Only events were present; they were placed by date.")}
	}
	ids := task.IDs(in.Tasks)

	text, err := p.completer.Complete(ctx, BuildPrompt(in.Tasks, in.Rules, in.Tier, in.Now, in.Location))
	if err != nil {
		slog.WarnContext(ctx, "prioritization completion failed, using fallback", "error", err)
		return Result{Assignment: Quarter(ids, FailureUnavailable), Fallback: FailureUnavailable}
	}
	a, err := ParseAssignment(text)
	if err != nil {
		slog.WarnContext(ctx, "prioritization response unparsable, using fallback", "error", err)
		return Result{Assignment: Quarter(ids, FailureParse), Fallback: FailureParse}
	}
	return Result{Assignment: a}
}

// Quarter splits ids, in order, into four contiguous chunks of ceil(n/4)
// assigned to DO, PLAN, DELEGATE and DELETE.
func Quarter(ids []string, class FailureClass) Assignment {
	a := emptyAssignment(fmt.Sprintf("Automatic prioritization fell back to an even split in creation order (%s).", class))
	n := len(ids)
	if n == 0 {
		return a
	}
	chunk := (n + 3) / 4
	for i, id := range ids {
		q := task.Quadrants[min(i/chunk, 3)]
		switch q {
		case task.PriorityDo:
			a.Do = append(a.Do, id)
		case task.PriorityPlan:
			a.Plan = append(a.Plan, id)
		case task.PriorityDelegate:
			a.Delegate = append(a.Delegate, id)
		case task.PriorityDelete:
			a.Delete = append(a.Delete, id)
		}
		a.Reasoning.Individual[id] = fmt.Sprintf("Fallback placement in %s (%s).", q, class)
	}
	return a
}
