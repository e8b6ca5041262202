package scheduling

import (
	"time"

	"github.com/kazz187/eisenhower/internal/task"
)

// Status is where a task stands with respect to automatic scheduling.
type Status string

const (
	StatusUnscheduled Status = "unscheduled"
	StatusStale       Status = "stale"
	StatusCurrent     Status = "current"
	StatusLocked      Status = "locked"
	StatusEvent       Status = "event"
	StatusDone        Status = "done"
	StatusPastDue     Status = "past_due"
)

func (s Status) Eligible() bool {
	return s == StatusUnscheduled || s == StatusStale
}

// Classify evaluates one task on its own. Done, event and locked tasks are
// never eligible. A task without a due date is not past due.
func Classify(t *task.Task, now time.Time) Status {
	switch {
	case t.IsDone:
		return StatusDone
	case t.IsEvent():
		return StatusEvent
	case t.AIScheduleLocked:
		return StatusLocked
	}
	if due := t.DueDate(); due != nil && due.Before(now) {
		return StatusPastDue
	}
	if !t.IsScheduled() {
		return StatusUnscheduled
	}
	if t.NeedsReschedule() {
		return StatusStale
	}
	return StatusCurrent
}

// Eligible returns the tasks that need a (re)computed slot, in input order.
func Eligible(tasks []*task.Task, now time.Time) []*task.Task {
	var out []*task.Task
	for _, t := range tasks {
		if Classify(t, now).Eligible() {
			out = append(out, t)
		}
	}
	return out
}

// Schedulable is the full set a manual run recomputes: every task the system
// may move, current ones included. Past-due tasks stay out as in Eligible.
func Schedulable(tasks []*task.Task, now time.Time) []*task.Task {
	var out []*task.Task
	for _, t := range tasks {
		switch Classify(t, now) {
		case StatusUnscheduled, StatusStale, StatusCurrent:
			out = append(out, t)
		}
	}
	return out
}
