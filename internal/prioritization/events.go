package prioritization

import (
	"fmt"
	"time"

	"github.com/kazz187/eisenhower/internal/task"
)

// Preclassified holds the rule-based placement of event tasks.
type Preclassified struct {
	EventsForDo   []string
	EventsForPlan []string
	Reasoning     map[string]string
}

// Preclassify sorts event tasks into DO or PLAN by comparing their date to
// today's calendar date in loc. Non-event tasks are ignored.
func Preclassify(tasks []*task.Task, now time.Time, loc *time.Location) Preclassified {
	if loc == nil {
		loc = time.UTC
	}
	out := Preclassified{
		EventsForDo:   []string{},
		EventsForPlan: []string{},
		Reasoning:     map[string]string{},
	}
	today := civilDay(now, loc)
	for _, t := range tasks {
		if !t.IsEvent() {
			continue
		}
		if t.TaskDate == nil {
			out.EventsForPlan = append(out.EventsForPlan, t.ID)
			out.Reasoning[t.ID] = "Event has no date; it needs planning."
			continue
		}
		days := daysBetween(today, civilDay(*t.TaskDate, loc))
		switch {
		case days < 0:
			out.EventsForDo = append(out.EventsForDo, t.ID)
			out.Reasoning[t.ID] = fmt.Sprintf("Event date passed %d day(s) ago; handle, reschedule or cancel it now.", -days)
		case days == 0:
			out.EventsForDo = append(out.EventsForDo, t.ID)
			out.Reasoning[t.ID] = "Event is today."
		default:
			out.EventsForPlan = append(out.EventsForPlan, t.ID)
			out.Reasoning[t.ID] = fmt.Sprintf("Event is in %d day(s); plan for it.", days)
		}
	}
	return out
}

// civilDay is midnight UTC of t's calendar date in loc, so day arithmetic is
// free of DST shifts.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
