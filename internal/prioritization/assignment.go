package prioritization

import (
	"github.com/kazz187/eisenhower/internal/task"
)

type Reasoning struct {
	Overall    string            `json:"overall"`
	Individual map[string]string `json:"individual"`
}

// Assignment places task ids into the four quadrants. Lists are ordered:
// earlier ids take precedence within their quadrant.
type Assignment struct {
	Do        []string  `json:"do"`
	Plan      []string  `json:"plan"`
	Delegate  []string  `json:"delegate"`
	Delete    []string  `json:"delete"`
	Reasoning Reasoning `json:"reasoning"`
}

func (a *Assignment) List(p task.Priority) []string {
	switch p {
	case task.PriorityDo:
		return a.Do
	case task.PriorityPlan:
		return a.Plan
	case task.PriorityDelegate:
		return a.Delegate
	case task.PriorityDelete:
		return a.Delete
	}
	return nil
}

func (a *Assignment) Total() int {
	return len(a.Do) + len(a.Plan) + len(a.Delegate) + len(a.Delete)
}

// Priorities maps every assigned id to its quadrant.
func (a *Assignment) Priorities() map[string]task.Priority {
	m := make(map[string]task.Priority, a.Total())
	for _, p := range task.Quadrants {
		for _, id := range a.List(p) {
			m[id] = p
		}
	}
	return m
}

func emptyAssignment(overall string) Assignment {
	return Assignment{
		Do:       []string{},
		Plan:     []string{},
		Delegate: []string{},
		Delete:   []string{},
		Reasoning: Reasoning{
			Overall:    overall,
			Individual: map[string]string{},
		},
	}
}
