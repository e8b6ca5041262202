package task

import "time"

type Type string

const (
	TypeDeadline Type = "deadline"
	TypeEvent    Type = "event"
)

// Priority is the Eisenhower quadrant. The zero value means the task still
// needs prioritization.
type Priority string

const (
	PriorityNone     Priority = ""
	PriorityDo       Priority = "do"
	PriorityPlan     Priority = "plan"
	PriorityDelegate Priority = "delegate"
	PriorityDelete   Priority = "delete"
)

var Quadrants = []Priority{PriorityDo, PriorityPlan, PriorityDelegate, PriorityDelete}

func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityDo, PriorityPlan, PriorityDelegate, PriorityDelete:
		return true
	}
	return false
}

// Ranked reports whether tasks in the quadrant carry an in-group rank.
func (p Priority) Ranked() bool {
	return p == PriorityDo || p == PriorityPlan
}

type Task struct {
	ID          string `yaml:"id" json:"id"`
	UserID      string `yaml:"user_id" json:"userId"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Type        Type   `yaml:"type" json:"type"`
	Category    string `yaml:"category" json:"category"`

	TaskDate  *time.Time `yaml:"task_date,omitempty" json:"taskDate,omitempty"`
	StartDate *time.Time `yaml:"start_date,omitempty" json:"startDate,omitempty"`
	EndDate   *time.Time `yaml:"end_date,omitempty" json:"endDate,omitempty"`

	Priority          Priority   `yaml:"priority" json:"priority"`
	InGroupRank       *int       `yaml:"in_group_rank,omitempty" json:"inGroupRank,omitempty"`
	PrioritizedAt     *time.Time `yaml:"prioritized_at,omitempty" json:"prioritizedAt,omitempty"`
	PriorityReasoning string     `yaml:"priority_reasoning,omitempty" json:"priorityReasoning,omitempty"`

	IsDone            bool       `yaml:"is_done" json:"isDone"`
	AIScheduleLocked  bool       `yaml:"ai_schedule_locked" json:"aiScheduleLocked"`
	ScheduledAt       *time.Time `yaml:"scheduled_at,omitempty" json:"scheduledAt,omitempty"`
	ScheduleReasoning string     `yaml:"schedule_reasoning,omitempty" json:"scheduleReasoning,omitempty"`

	GoogleCalendarEventID string `yaml:"google_calendar_event_id,omitempty" json:"googleCalendarEventId,omitempty"`
	GoogleCalendarSynced  bool   `yaml:"google_calendar_synced,omitempty" json:"googleCalendarSynced,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}

func (t *Task) IsEvent() bool {
	return t.Type == TypeEvent
}

// DueDate is the reference date of the task: TaskDate until scheduling has
// replaced it with a time range, then EndDate.
func (t *Task) DueDate() *time.Time {
	if t.TaskDate != nil {
		return t.TaskDate
	}
	return t.EndDate
}

func (t *Task) IsScheduled() bool {
	return t.StartDate != nil && t.EndDate != nil
}

// NeedsReschedule is true when the task was never scheduled or was
// re-prioritized after its last schedule.
func (t *Task) NeedsReschedule() bool {
	if t.ScheduledAt == nil {
		return true
	}
	return t.PrioritizedAt != nil && t.PrioritizedAt.After(*t.ScheduledAt)
}

func (t *Task) Clone() *Task {
	c := *t
	c.TaskDate = cloneTime(t.TaskDate)
	c.StartDate = cloneTime(t.StartDate)
	c.EndDate = cloneTime(t.EndDate)
	c.PrioritizedAt = cloneTime(t.PrioritizedAt)
	c.ScheduledAt = cloneTime(t.ScheduledAt)
	if t.InGroupRank != nil {
		r := *t.InGroupRank
		c.InGroupRank = &r
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// IDs returns the ids of tasks in order.
func IDs(tasks []*Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func ByID(tasks []*Task) map[string]*Task {
	m := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	return m
}
