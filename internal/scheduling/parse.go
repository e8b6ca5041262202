package scheduling

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kazz187/eisenhower/internal/tasksync"
	"github.com/kazz187/eisenhower/pkg/llmjson"
)

// ParseFailure reports completion text that is not a valid schedule. One bad
// entry rejects the whole response.
type ParseFailure struct {
	Reason string
}

func (e *ParseFailure) Error() string {
	return "invalid schedule response: " + e.Reason
}

func parseFailure(format string, args ...any) error {
	return &ParseFailure{Reason: fmt.Sprintf(format, args...)}
}

func IsParseFailure(err error) bool {
	var pf *ParseFailure
	return errors.As(err, &pf)
}

type slotJSON struct {
	ID        json.RawMessage `json:"id"`
	StartDate json.RawMessage `json:"startDate"`
	EndDate   json.RawMessage `json:"endDate"`
	Reasoning json.RawMessage `json:"reasoning"`
}

// ParseSchedule decodes {"schedule":[...]} ("tasks" is accepted as an alias)
// and checks every slot against the requested ids.
func ParseSchedule(text string, requested map[string]bool) ([]tasksync.Slot, error) {
	raw, ok := llmjson.FirstObject(text)
	if !ok {
		return nil, parseFailure("no JSON object found")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, parseFailure("top level is not an object: %v", err)
	}
	list, ok := fields["schedule"]
	if !ok {
		list, ok = fields["tasks"]
	}
	if !ok {
		return nil, parseFailure(`missing "schedule"`)
	}
	if llmjson.KindOf(list) != llmjson.KindArray {
		return nil, parseFailure(`"schedule" is not an array`)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, parseFailure("schedule: %v", err)
	}

	slots := make([]tasksync.Slot, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if llmjson.KindOf(item) != llmjson.KindObject {
			return nil, parseFailure("schedule[%d] is not an object", i)
		}
		var sj slotJSON
		if err := json.Unmarshal(item, &sj); err != nil {
			return nil, parseFailure("schedule[%d]: %v", i, err)
		}
		id, err := stringField(sj.ID, i, "id")
		if err != nil {
			return nil, err
		}
		if !requested[id] {
			return nil, parseFailure("schedule[%d]: unknown task id %q", i, id)
		}
		if seen[id] {
			return nil, parseFailure("schedule[%d]: task %q scheduled twice", i, id)
		}
		seen[id] = true
		start, err := timeField(sj.StartDate, i, "startDate")
		if err != nil {
			return nil, err
		}
		end, err := timeField(sj.EndDate, i, "endDate")
		if err != nil {
			return nil, err
		}
		if !end.After(start) {
			return nil, parseFailure("schedule[%d]: endDate must be after startDate", i)
		}
		var reasoning string
		switch llmjson.KindOf(sj.Reasoning) {
		case llmjson.KindInvalid, llmjson.KindNull:
		case llmjson.KindString:
			_ = json.Unmarshal(sj.Reasoning, &reasoning)
		default:
			return nil, parseFailure("schedule[%d]: reasoning is not a string", i)
		}
		slots = append(slots, tasksync.Slot{ID: id, Start: start.UTC(), End: end.UTC(), Reasoning: reasoning})
	}
	return slots, nil
}

func stringField(raw json.RawMessage, i int, name string) (string, error) {
	if llmjson.KindOf(raw) != llmjson.KindString {
		return "", parseFailure("schedule[%d].%s is not a string", i, name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", parseFailure("schedule[%d].%s: %v", i, name, err)
	}
	return s, nil
}

func timeField(raw json.RawMessage, i int, name string) (time.Time, error) {
	s, err := stringField(raw, i, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, parseFailure("schedule[%d].%s %q is not RFC3339", i, name, s)
	}
	return t, nil
}
