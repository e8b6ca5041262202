package prioritization

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kazz187/eisenhower/pkg/llmjson"
)

// ParseFailure reports completion text that does not hold a valid assignment.
type ParseFailure struct {
	Reason string
}

func (e *ParseFailure) Error() string {
	return "unparsable prioritization response: " + e.Reason
}

func parseFailure(format string, args ...any) error {
	return &ParseFailure{Reason: fmt.Sprintf(format, args...)}
}

func IsParseFailure(err error) bool {
	var pf *ParseFailure
	return errors.As(err, &pf)
}

// ParseAssignment decodes the first JSON object in text. Missing quadrant
// arrays default to empty; anything present must have the expected shape.
// reasoning may be an object {overall, individual} or a bare string.
func ParseAssignment(text string) (Assignment, error) {
	raw, ok := llmjson.FirstObject(text)
	if !ok {
		return Assignment{}, parseFailure("no JSON object found")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Assignment{}, parseFailure("top level is not an object: %v", err)
	}

	out := emptyAssignment("")
	for key, dst := range map[string]*[]string{
		"do":       &out.Do,
		"plan":     &out.Plan,
		"delegate": &out.Delegate,
		"delete":   &out.Delete,
	} {
		ids, err := decodeIDs(key, fields[key])
		if err != nil {
			return Assignment{}, err
		}
		*dst = ids
	}
	r, err := decodeReasoning(fields["reasoning"])
	if err != nil {
		return Assignment{}, err
	}
	out.Reasoning = r
	return out, nil
}

func decodeIDs(key string, raw json.RawMessage) ([]string, error) {
	switch llmjson.KindOf(raw) {
	case llmjson.KindInvalid, llmjson.KindNull:
		return []string{}, nil
	case llmjson.KindArray:
	default:
		return nil, parseFailure("%q is not an array", key)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, parseFailure("%q: %v", key, err)
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		if llmjson.KindOf(item) != llmjson.KindString {
			return nil, parseFailure("%q[%d] is not a string", key, i)
		}
		var id string
		if err := json.Unmarshal(item, &id); err != nil {
			return nil, parseFailure("%q[%d]: %v", key, i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func decodeReasoning(raw json.RawMessage) (Reasoning, error) {
	r := Reasoning{Individual: map[string]string{}}
	switch llmjson.KindOf(raw) {
	case llmjson.KindInvalid, llmjson.KindNull:
		return r, nil
	case llmjson.KindString:
		if err := json.Unmarshal(raw, &r.Overall); err != nil {
			return r, parseFailure("reasoning: %v", err)
		}
		return r, nil
	case llmjson.KindObject:
	default:
		return r, parseFailure("reasoning is neither an object nor a string")
	}
	var obj struct {
		Overall    json.RawMessage `json:"overall"`
		Individual json.RawMessage `json:"individual"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return r, parseFailure("reasoning: %v", err)
	}
	switch llmjson.KindOf(obj.Overall) {
	case llmjson.KindInvalid, llmjson.KindNull:
	case llmjson.KindString:
		_ = json.Unmarshal(obj.Overall, &r.Overall)
	default:
		return r, parseFailure("reasoning.overall is not a string")
	}
	switch llmjson.KindOf(obj.Individual) {
	case llmjson.KindInvalid, llmjson.KindNull:
	case llmjson.KindObject:
		if err := json.Unmarshal(obj.Individual, &r.Individual); err != nil {
			return r, parseFailure("reasoning.individual values must be strings")
		}
	default:
		return r, parseFailure("reasoning.individual is not an object")
	}
	return r, nil
}
