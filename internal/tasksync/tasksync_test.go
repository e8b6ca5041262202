package tasksync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/internal/task/repositoryimpl"
	"github.com/kazz187/eisenhower/pkg/retry"
	"github.com/kazz187/eisenhower/pkg/storage"
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// flakyRepo fails the first n updates of the listed ids.
type flakyRepo struct {
	task.Repository
	mu       sync.Mutex
	failures map[string]int
	panics   map[string]bool
}

func (r *flakyRepo) Update(ctx context.Context, id string, p task.Patch) (*task.Task, error) {
	r.mu.Lock()
	if r.panics[id] {
		r.mu.Unlock()
		panic("storage exploded")
	}
	if r.failures[id] > 0 {
		r.failures[id]--
		r.mu.Unlock()
		return nil, errors.New("transient")
	}
	r.mu.Unlock()
	return r.Repository.Update(ctx, id, p)
}

func seed(t *testing.T, tasks ...*task.Task) *repositoryimpl.YAMLRepository {
	t.Helper()
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage()).WithClock(func() time.Time { return now })
	for i, tk := range tasks {
		tk.UserID = "u1"
		tk.CreatedAt = now.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(context.Background(), tk))
	}
	return repo
}

func fastSyncer(repo task.Repository) *Syncer {
	return NewSyncer(repo, WithConcurrency(4), WithRetryPolicy(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}))
}

func TestRanks(t *testing.T) {
	tasks := []*task.Task{
		{ID: "a", Priority: task.PriorityDo, InGroupRank: ptr(4)},
		{ID: "b", Priority: task.PriorityPlan, InGroupRank: ptr(2)},
		{ID: "c", Priority: task.PriorityDo, InGroupRank: ptr(7)},
		{ID: "d"},
		{ID: "e", Priority: task.PriorityDo},
	}
	ranks := Ranks(tasks, []Placement{
		{ID: "a", Priority: task.PriorityDo},
		{ID: "d", Priority: task.PriorityDo},
		{ID: "e", Priority: task.PriorityDo},
		{ID: "c", Priority: task.PriorityPlan},
		{ID: "b", Priority: task.PriorityDelete},
	})
	assert.Equal(t, 4, *ranks["a"])
	assert.Equal(t, 5, *ranks["d"])
	assert.Equal(t, 6, *ranks["e"])
	assert.Equal(t, 1, *ranks["c"])
	assert.Nil(t, ranks["b"])
}

func TestApplyAssignment(t *testing.T) {
	ctx := context.Background()
	repo := seed(t,
		&task.Task{ID: "t1"},
		&task.Task{ID: "t2", Priority: task.PriorityDo, InGroupRank: ptr(1)},
		&task.Task{ID: "t3"},
	)
	tasks, err := repo.ListActiveByUser(ctx, "u1")
	require.NoError(t, err)

	flaky := &flakyRepo{Repository: repo, failures: map[string]int{"t1": 1}}
	report := fastSyncer(flaky).ApplyAssignment(ctx, tasks, []Placement{
		{ID: "t2", Priority: task.PriorityDo, Reasoning: "still urgent"},
		{ID: "t1", Priority: task.PriorityDo, Reasoning: "urgent"},
		{ID: "t3", Priority: task.PriorityDelegate, Reasoning: "hand off"},
	}, now)
	assert.Equal(t, 3, report.Written)
	assert.False(t, report.Partial())

	got, err := repo.ListActiveByUser(ctx, "u1")
	require.NoError(t, err)
	byID := task.ByID(got)
	assert.Equal(t, 1, *byID["t2"].InGroupRank)
	assert.Equal(t, 2, *byID["t1"].InGroupRank)
	assert.Nil(t, byID["t3"].InGroupRank)
	assert.Equal(t, task.PriorityDelegate, byID["t3"].Priority)
	assert.Equal(t, "urgent", byID["t1"].PriorityReasoning)
	for _, tk := range got {
		assert.True(t, tk.PrioritizedAt.Equal(now))
	}
}

func TestApplyAssignmentPartialPersistence(t *testing.T) {
	ctx := context.Background()
	repo := seed(t, &task.Task{ID: "t1"}, &task.Task{ID: "t2"}, &task.Task{ID: "t3"})
	tasks, err := repo.ListActiveByUser(ctx, "u1")
	require.NoError(t, err)

	flaky := &flakyRepo{Repository: repo, failures: map[string]int{"t1": 10}, panics: map[string]bool{"t3": true}}
	report := fastSyncer(flaky).ApplyAssignment(ctx, tasks, []Placement{
		{ID: "t1", Priority: task.PriorityPlan},
		{ID: "t2", Priority: task.PriorityPlan},
		{ID: "t3", Priority: task.PriorityPlan},
		{ID: "gone", Priority: task.PriorityDelete},
	}, now)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, []string{"gone", "t1", "t3"}, report.Failed)
	assert.True(t, report.Partial())
}

func TestSweepNullPriority(t *testing.T) {
	ctx := context.Background()
	repo := seed(t,
		&task.Task{ID: "t1", Priority: task.PriorityPlan, InGroupRank: ptr(3)},
		&task.Task{ID: "t2"},
		&task.Task{ID: "t3", IsDone: true},
		&task.Task{ID: "t4"},
	)
	tasks, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)

	out, swept, report := fastSyncer(repo).SweepNullPriority(ctx, tasks, now)
	assert.Equal(t, []string{"t2", "t4"}, swept)
	assert.Equal(t, 2, report.Written)
	byID := task.ByID(out)
	assert.Equal(t, task.PriorityPlan, byID["t2"].Priority)
	assert.Equal(t, 4, *byID["t2"].InGroupRank)
	assert.Equal(t, 5, *byID["t4"].InGroupRank)
	assert.Equal(t, task.PriorityNone, byID["t3"].Priority)

	stored, err := repo.Get(ctx, "t4")
	require.NoError(t, err)
	assert.Equal(t, task.PriorityPlan, stored.Priority)

	_, swept, report = fastSyncer(repo).SweepNullPriority(ctx, out, now)
	assert.Empty(t, swept)
	assert.Zero(t, report.Written)
}

func TestSweepNullPriorityFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	repo := seed(t, &task.Task{ID: "t1"}, &task.Task{ID: "t2"})
	tasks, err := repo.ListActiveByUser(ctx, "u1")
	require.NoError(t, err)

	flaky := &flakyRepo{Repository: repo, failures: map[string]int{"t1": 10}}
	out, swept, report := fastSyncer(flaky).SweepNullPriority(ctx, tasks, now)
	assert.Equal(t, []string{"t2"}, swept)
	assert.Equal(t, []string{"t1"}, report.Failed)
	assert.Equal(t, task.PriorityNone, task.ByID(out)["t1"].Priority)
}

func TestApplySchedule(t *testing.T) {
	ctx := context.Background()
	day := now.Add(24 * time.Hour)
	repo := seed(t, &task.Task{ID: "t1", TaskDate: &day})

	start, end := now.Add(time.Hour), now.Add(2*time.Hour)
	report := fastSyncer(repo).ApplySchedule(ctx, []Slot{{ID: "t1", Start: start, End: end, Reasoning: "free morning"}}, now)
	assert.Equal(t, 1, report.Written)

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, got.TaskDate)
	assert.True(t, got.StartDate.Equal(start))
	assert.True(t, got.EndDate.Equal(end))
	assert.True(t, got.ScheduledAt.Equal(now))
	assert.Equal(t, "free morning", got.ScheduleReasoning)
}

func TestFingerprint(t *testing.T) {
	day := time.Date(2026, 3, 5, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	a := []*task.Task{{ID: "t1", Category: "work", TaskDate: &day}, {ID: "t2"}}
	b := []*task.Task{{ID: "t2", Priority: task.PriorityDo}, {ID: "t1", Category: "work", TaskDate: ptr(day.UTC())}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)

	c := []*task.Task{{ID: "t1", Category: "home", TaskDate: &day}, {ID: "t2"}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(a[:1]))
}
