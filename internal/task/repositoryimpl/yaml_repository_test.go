package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/storage"
)

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewYAMLRepository(storage.NewMemoryStorage()).WithClock(func() time.Time { return now })

	day := now.Add(48 * time.Hour)
	require.NoError(t, repo.Create(ctx, &task.Task{ID: "t2", UserID: "u1", Title: "second", CreatedAt: now.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, &task.Task{ID: "t1", UserID: "u1", Title: "first", TaskDate: &day, CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, &task.Task{ID: "t3", UserID: "u1", IsDone: true, CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, &task.Task{ID: "o1", UserID: "u2", CreatedAt: now}))

	err := repo.Create(ctx, &task.Task{ID: "t1", UserID: "u1"})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	all, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3", "t2"}, task.IDs(all))

	active, err := repo.ListActiveByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, task.IDs(active))

	p := task.PriorityDo
	rank := 1
	updated, err := repo.Update(ctx, "t1", task.Patch{Priority: &p, InGroupRank: &rank, PrioritizedAt: &now})
	require.NoError(t, err)
	assert.Equal(t, task.PriorityDo, updated.Priority)
	assert.Equal(t, now, updated.UpdatedAt)

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.PriorityDo, got.Priority)
	assert.Equal(t, 1, *got.InGroupRank)
	assert.True(t, got.TaskDate.Equal(day))
	assert.Equal(t, "first", got.Title)

	_, err = repo.Update(ctx, "missing", task.Patch{})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
