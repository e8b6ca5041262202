package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/eisenhower/internal/completion"
	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/storage"
)

func TestNewWiresMemoryStack(t *testing.T) {
	env := &config.Env{
		BaseEnv:         config.BaseEnv{Timezone: "UTC"},
		StorageEnv:      config.StorageEnv{Type: "memory", TaskStore: "yaml"},
		OrchestratorEnv: config.OrchestratorEnv{PersistConcurrency: 2},
	}
	completer := completion.Func(func(context.Context, completion.Request) (string, error) {
		return `{"do":["t1"]}`, nil
	})
	a, err := New(context.Background(), env, completer)
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, &storage.MemoryStorage{}, a.Storage)
	assert.Nil(t, a.Rules)

	require.NoError(t, a.Tasks.Create(context.Background(), &task.Task{
		ID: "t1", UserID: "u1", Title: "Ship it", Priority: task.PriorityPlan, CreatedAt: time.Now(),
	}))
	res, err := a.Prioritization.Run(context.Background(), "u1", prioritization.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, res.Assignment.Do)

	stored, err := a.Tasks.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, task.PriorityDo, stored.Priority)
}
