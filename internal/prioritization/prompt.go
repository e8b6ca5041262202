package prioritization

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kazz187/eisenhower/internal/completion"
	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/internal/task"
)

// Limits bound how much user text goes into one prompt.
type Limits struct {
	Description int
	Rules       int
}

var tierLimits = map[profile.Tier]Limits{
	profile.TierFree: {Description: 200, Rules: 500},
	profile.TierPro:  {Description: 1000, Rules: 4000},
}

func LimitsFor(tier profile.Tier) Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[profile.TierFree]
}

const systemPrompt = `You are a productivity assistant that sorts tasks into the Eisenhower matrix.
Quadrants:
- do: urgent and important, needs attention today or tomorrow.
- plan: important but not urgent, should be scheduled.
- delegate: urgent but not important, can be handed to someone else.
- delete: neither urgent nor important.
Place every task id in exactly one quadrant. Order ids within a quadrant by precedence, most important first.
Reply with a single JSON object and nothing else.`

type promptTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Type        string `json:"type"`
	DueDate     string `json:"dueDate,omitempty"`
	IsDone      bool   `json:"isDone"`
}

// BuildPrompt renders the completion request for the non-event tasks.
func BuildPrompt(tasks []*task.Task, rules string, tier profile.Tier, now time.Time, loc *time.Location) completion.Request {
	if loc == nil {
		loc = time.UTC
	}
	limits := LimitsFor(tier)
	items := make([]promptTask, 0, len(tasks))
	for _, t := range tasks {
		typ := t.Type
		if typ == "" {
			typ = task.TypeDeadline
		}
		pt := promptTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: truncate(t.Description, limits.Description),
			Category:    t.Category,
			Type:        string(typ),
			IsDone:      t.IsDone,
		}
		if due := t.DueDate(); due != nil {
			pt.DueDate = due.In(loc).Format("2006-01-02 15:04")
		}
		items = append(items, pt)
	}
	tasksJSON, _ := json.MarshalIndent(items, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s (%s).\n\n", now.In(loc).Format("Monday, 2006-01-02 15:04"), loc)
	b.WriteString("Tasks:\n")
	b.Write(tasksJSON)
	b.WriteString("\n\n")
	if rules = strings.TrimSpace(truncate(rules, limits.Rules)); rules != "" {
		b.WriteString("The user's prioritizing rules (follow them when they apply):\n")
		b.WriteString(rules)
		b.WriteString("\n\n")
	}
	b.WriteString(`Respond with JSON of this shape:
{"do": ["id", ...], "plan": [...], "delegate": [...], "delete": [...],
 "reasoning": {"overall": "one or two sentences", "individual": {"id": "short reason", ...}}}`)
	return completion.Request{
		System:    systemPrompt,
		Prompt:    b.String(),
		Operation: "prioritize",
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
