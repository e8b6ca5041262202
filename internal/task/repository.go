package task

import (
	"context"
	"sort"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// ListByUser returns every task owned by userID in creation order.
	ListByUser(ctx context.Context, userID string) ([]*Task, error)
	// ListActiveByUser is ListByUser without done tasks.
	ListActiveByUser(ctx context.Context, userID string) ([]*Task, error)
	// Update applies patch to the stored task and returns the result.
	Update(ctx context.Context, id string, patch Patch) (*Task, error)
}

// SortByCreation orders tasks by creation time, then id.
func SortByCreation(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func Active(tasks []*Task) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsDone {
			out = append(out, t)
		}
	}
	return out
}
