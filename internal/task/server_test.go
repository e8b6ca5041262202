package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/internal/task/repositoryimpl"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/storage"
)

func newServer(t *testing.T) (*task.Server, <-chan *eventbus.Event) {
	t.Helper()
	bus := eventbus.New()
	_, events := bus.Subscribe(16)
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	return task.NewServer(repo, bus), events
}

func TestServerCreateAndList(t *testing.T) {
	srv, events := newServer(t)
	ctx := auth.ContextWithUserID(context.Background(), "u1")

	res, err := srv.CreateTask(ctx, &task.CreateTaskRequest{Title: "Write report"})
	require.NoError(t, err)
	assert.Equal(t, task.TypeDeadline, res.Task.Type)
	assert.Equal(t, task.PriorityNone, res.Task.Priority)
	assert.NotEmpty(t, res.Task.ID)

	ev := <-events
	assert.Equal(t, eventbus.TaskCreated, ev.Type)
	assert.Equal(t, res.Task.ID, ev.ResourceID)

	other := auth.ContextWithUserID(context.Background(), "u2")
	_, err = srv.CreateTask(other, &task.CreateTaskRequest{Title: "Not mine"})
	require.NoError(t, err)

	list, err := srv.ListTasks(ctx, &task.ListTasksRequest{})
	require.NoError(t, err)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, "Write report", list.Tasks[0].Title)
}

func TestServerCreateValidation(t *testing.T) {
	srv, _ := newServer(t)
	ctx := auth.ContextWithUserID(context.Background(), "u1")

	_, err := srv.CreateTask(ctx, &task.CreateTaskRequest{Type: "meeting", Priority: "urgent"})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	var cErr *cerr.Error
	require.ErrorAs(t, err, &cErr)
	assert.Len(t, cErr.Details, 3)

	_, err = srv.CreateTask(context.Background(), &task.CreateTaskRequest{Title: "x"})
	assert.True(t, cerr.IsCode(err, cerr.Unauthenticated))
}

func TestServerUpdateLocksOnManualSlot(t *testing.T) {
	srv, events := newServer(t)
	ctx := auth.ContextWithUserID(context.Background(), "u1")
	created, err := srv.CreateTask(ctx, &task.CreateTaskRequest{Title: "Focus block"})
	require.NoError(t, err)
	<-events

	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	res, err := srv.UpdateTask(ctx, &task.UpdateTaskRequest{ID: created.Task.ID, StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.True(t, res.Task.AIScheduleLocked)
	assert.True(t, res.Task.IsScheduled())
	assert.Equal(t, eventbus.TaskUpdated, (<-events).Type)

	unlock := false
	res, err = srv.UpdateTask(ctx, &task.UpdateTaskRequest{ID: created.Task.ID, AIScheduleLocked: &unlock})
	require.NoError(t, err)
	assert.False(t, res.Task.AIScheduleLocked)

	backwards := start.Add(-time.Hour)
	_, err = srv.UpdateTask(ctx, &task.UpdateTaskRequest{ID: created.Task.ID, EndDate: &backwards})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	title := "Stolen"
	other := auth.ContextWithUserID(context.Background(), "u2")
	_, err = srv.UpdateTask(other, &task.UpdateTaskRequest{ID: created.Task.ID, Title: &title})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
