package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kazz187/eisenhower/internal/completion"
	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/internal/task"
)

const systemPrompt = `You are a scheduling assistant. You assign time slots to tasks on the user's calendar.
Never overlap a fixed block. Keep slots inside the working hours unless a rule says otherwise.
Tasks in "do" come first, then "plan"; lower rank goes first within a quadrant.
Finish every task before its due date. Use RFC3339 timestamps with the user's UTC offset.
Reply with a single JSON object and nothing else.`

type promptTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Rank        *int   `json:"rank,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

type promptBlock struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// fixedBlocks are the calendar entries a run must schedule around: events,
// locked tasks and other scheduled tasks that are not being moved.
func fixedBlocks(active []*task.Task, moving map[string]bool, loc *time.Location) []promptBlock {
	var out []promptBlock
	for _, t := range active {
		if moving[t.ID] {
			continue
		}
		kind := "scheduled"
		switch {
		case t.IsEvent():
			kind = "event"
		case t.AIScheduleLocked:
			kind = "locked"
		}
		switch {
		case t.IsScheduled():
			out = append(out, promptBlock{
				Title: t.Title,
				Kind:  kind,
				Start: t.StartDate.In(loc).Format(time.RFC3339),
				End:   t.EndDate.In(loc).Format(time.RFC3339),
			})
		case t.IsEvent() && t.TaskDate != nil:
			out = append(out, promptBlock{Title: t.Title, Kind: kind, Start: t.TaskDate.In(loc).Format(time.RFC3339)})
		}
	}
	return out
}

// BuildPrompt renders the completion request that places toPlace around the
// fixed blocks derived from active.
func BuildPrompt(toPlace, active []*task.Task, p *profile.Profile, now time.Time, loc *time.Location) completion.Request {
	limits := prioritization.LimitsFor(p.EffectiveTier())
	moving := make(map[string]bool, len(toPlace))
	items := make([]promptTask, 0, len(toPlace))
	for _, t := range toPlace {
		moving[t.ID] = true
		pt := promptTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: truncate(t.Description, limits.Description),
			Category:    t.Category,
			Priority:    string(t.Priority),
			Rank:        t.InGroupRank,
		}
		if due := t.DueDate(); due != nil {
			pt.DueDate = due.In(loc).Format(time.RFC3339)
		}
		items = append(items, pt)
	}
	tasksJSON, _ := json.MarshalIndent(items, "", "  ")
	blocksJSON, _ := json.MarshalIndent(fixedBlocks(active, moving, loc), "", "  ")
	start, end := p.Workday()

	var b strings.Builder
	fmt.Fprintf(&b, "Now is %s (%s).\n", now.In(loc).Format(time.RFC3339), loc)
	fmt.Fprintf(&b, "Working hours: %s to %s.\n\n", start, end)
	b.WriteString("Tasks to schedule:\n")
	b.Write(tasksJSON)
	b.WriteString("\n\nFixed blocks (do not move or overlap):\n")
	b.Write(blocksJSON)
	b.WriteString("\n\n")
	if rules := strings.TrimSpace(truncate(p.SchedulingRules, limits.Rules)); rules != "" {
		b.WriteString("The user's scheduling rules:\n")
		b.WriteString(rules)
		b.WriteString("\n\n")
	}
	b.WriteString(`Respond with JSON of this shape:
{"schedule": [{"id": "task id", "startDate": "RFC3339", "endDate": "RFC3339", "reasoning": "short reason"}, ...]}`)
	return completion.Request{
		System:    systemPrompt,
		Prompt:    b.String(),
		Operation: "schedule",
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
