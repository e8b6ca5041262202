package task

import "time"

// Patch is a partial update. Nil fields are left untouched. Applying the same
// patch twice yields the same record.
type Patch struct {
	Title       *string
	Description *string
	Category    *string
	Type        *Type
	TaskDate    *time.Time
	IsDone      *bool

	Priority          *Priority
	InGroupRank       *int
	ClearRank         bool
	PrioritizedAt     *time.Time
	PriorityReasoning *string

	StartDate         *time.Time
	EndDate           *time.Time
	ClearTaskDate     bool
	ScheduledAt       *time.Time
	ScheduleReasoning *string
	AIScheduleLocked  *bool
}

func (p Patch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.TaskDate != nil {
		t.TaskDate = cloneTime(p.TaskDate)
	}
	if p.IsDone != nil {
		t.IsDone = *p.IsDone
	}

	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearRank:
		t.InGroupRank = nil
	case p.InGroupRank != nil:
		r := *p.InGroupRank
		t.InGroupRank = &r
	}
	if p.PrioritizedAt != nil {
		t.PrioritizedAt = cloneTime(p.PrioritizedAt)
	}
	if p.PriorityReasoning != nil {
		t.PriorityReasoning = *p.PriorityReasoning
	}

	if p.StartDate != nil {
		t.StartDate = cloneTime(p.StartDate)
	}
	if p.EndDate != nil {
		t.EndDate = cloneTime(p.EndDate)
	}
	if p.ClearTaskDate {
		t.TaskDate = nil
	}
	if p.ScheduledAt != nil {
		t.ScheduledAt = cloneTime(p.ScheduledAt)
	}
	if p.ScheduleReasoning != nil {
		t.ScheduleReasoning = *p.ScheduleReasoning
	}
	if p.AIScheduleLocked != nil {
		t.AIScheduleLocked = *p.AIScheduleLocked
	}
	t.UpdatedAt = now
}
