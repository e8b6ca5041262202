package tasksync

import (
	"context"
	"time"

	"github.com/kazz187/eisenhower/internal/task"
)

type Slot struct {
	ID        string
	Start     time.Time
	End       time.Time
	Reasoning string
}

// ApplySchedule writes each slot's time range, clears TaskDate (the range
// supersedes it) and stamps ScheduledAt = now.
func (s *Syncer) ApplySchedule(ctx context.Context, slots []Slot, now time.Time) Report {
	writes := make([]write, 0, len(slots))
	for _, sl := range slots {
		start, end, reasoning := sl.Start, sl.End, sl.Reasoning
		writes = append(writes, write{id: sl.ID, patch: task.Patch{
			StartDate:         &start,
			EndDate:           &end,
			ClearTaskDate:     true,
			ScheduledAt:       &now,
			ScheduleReasoning: &reasoning,
		}})
	}
	_, report := s.apply(ctx, writes)
	return report
}
