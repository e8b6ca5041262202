package prioritization

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/eisenhower/internal/completion"
	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/internal/profile"
	profilerepo "github.com/kazz187/eisenhower/internal/profile/repositoryimpl"
	"github.com/kazz187/eisenhower/internal/runstate"
	"github.com/kazz187/eisenhower/internal/task"
	taskrepo "github.com/kazz187/eisenhower/internal/task/repositoryimpl"
	"github.com/kazz187/eisenhower/internal/tasksync"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/retry"
	"github.com/kazz187/eisenhower/pkg/storage"
)

// countingRepo counts Update calls.
type countingRepo struct {
	task.Repository
	updates atomic.Int32
}

func (r *countingRepo) Update(ctx context.Context, id string, p task.Patch) (*task.Task, error) {
	r.updates.Add(1)
	return r.Repository.Update(ctx, id, p)
}

type fixture struct {
	repo    *countingRepo
	states  *runstate.YAMLRepository
	tracker *runstate.Tracker
	bus     *eventbus.Bus
	calls   atomic.Int32
	reply   func() (string, error)
	service *Service
}

func newFixture(t *testing.T, tasks ...*task.Task) *fixture {
	t.Helper()
	store := storage.NewMemoryStorage()
	base := taskrepo.NewYAMLRepository(store).WithClock(func() time.Time { return now })
	for i, tk := range tasks {
		tk.UserID = "u1"
		tk.CreatedAt = now.Add(time.Duration(i) * time.Second)
		require.NoError(t, base.Create(context.Background(), tk))
	}
	f := &fixture{
		repo:    &countingRepo{Repository: base},
		states:  runstate.NewYAMLRepository(store),
		tracker: runstate.NewTracker(),
		bus:     eventbus.New(),
		reply:   func() (string, error) { return "", errors.New("unavailable") },
	}
	completer := completion.Func(func(context.Context, completion.Request) (string, error) {
		f.calls.Add(1)
		return f.reply()
	})
	syncer := tasksync.NewSyncer(f.repo, tasksync.WithRetryPolicy(retry.Policy{MaxAttempts: 1}))
	f.service = NewService(
		f.repo,
		profile.NewSource(profilerepo.NewYAMLRepository(store), nil),
		f.states,
		f.tracker,
		NewPrioritizer(completer),
		syncer,
		f.bus,
	).WithClock(func() time.Time { return now })
	return f
}

func (f *fixture) get(t *testing.T, id string) *task.Task {
	t.Helper()
	tk, err := f.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return tk
}

func withPriority(tk *task.Task, p task.Priority) *task.Task {
	tk.Priority = p
	return tk
}

func TestServiceRunFallbackScenario(t *testing.T) {
	f := newFixture(t,
		withPriority(event("ev", ptr(now.Add(2*time.Hour))), task.PriorityPlan),
		withPriority(deadline("d1"), task.PriorityPlan),
		withPriority(deadline("d2"), task.PriorityDo),
		withPriority(deadline("d3"), task.PriorityDelete),
	)
	_, events := f.bus.Subscribe(4)

	res, err := f.service.Run(context.Background(), "u1", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, FailureUnavailable, res.Fallback)
	assert.NotEmpty(t, res.RunID)

	a := res.Assignment
	assert.Equal(t, []string{"ev", "d1"}, a.Do)
	assert.Equal(t, []string{"d2"}, a.Plan)
	assert.Equal(t, []string{"d3"}, a.Delegate)
	assert.Empty(t, a.Delete)
	assert.Equal(t, 4, a.Total())
	assert.Equal(t, 4, res.Written)
	assert.Empty(t, res.Failed)

	assert.Equal(t, task.PriorityDo, f.get(t, "ev").Priority)
	assert.Equal(t, task.PriorityDo, f.get(t, "d1").Priority)
	assert.Equal(t, task.PriorityDelegate, f.get(t, "d3").Priority)
	assert.Nil(t, f.get(t, "d3").InGroupRank)
	assert.True(t, now.Equal(*f.get(t, "d2").PrioritizedAt))

	st, err := f.states.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, res.Hash, st.PrioritizationHash)
	require.NotNil(t, st.LastPrioritizedAt)

	select {
	case ev := <-events:
		assert.Equal(t, eventbus.PrioritizationCompleted, ev.Type)
		assert.Equal(t, "u1", ev.UserID)
	default:
		t.Fatal("expected prioritization.completed")
	}
}

func TestServiceRunHashMatchIsNoop(t *testing.T) {
	f := newFixture(t,
		withPriority(deadline("a"), task.PriorityPlan),
		withPriority(deadline("b"), task.PriorityDo),
	)
	f.reply = func() (string, error) { return `{"do":["a"],"plan":["b"]}`, nil }

	first, err := f.service.Run(context.Background(), "u1", RunOptions{})
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, first.Outcome)
	writes := f.repo.updates.Load()
	_, events := f.bus.Subscribe(4)

	second, err := f.service.Run(context.Background(), "u1", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, second.Outcome)
	assert.Equal(t, first.Hash, second.Hash)
	assert.Nil(t, second.Assignment)
	assert.Equal(t, writes, f.repo.updates.Load())
	assert.Equal(t, int32(1), f.calls.Load())
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s on a no-op pass", ev.Type)
	default:
	}

	forced, err := f.service.Run(context.Background(), "u1", RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, forced.Outcome)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestServiceRunIsIdempotent(t *testing.T) {
	f := newFixture(t, deadline("a"), deadline("b"), deadline("c"), event("ev", ptr(now.AddDate(0, 0, 1))))
	for _, id := range []string{"a", "b", "c"} {
		p := task.PriorityDelete
		_, err := f.repo.Update(context.Background(), id, task.Patch{Priority: &p})
		require.NoError(t, err)
	}
	f.reply = func() (string, error) { return `{"do":["c"],"delegate":["a"]}`, nil }

	first, err := f.service.Run(context.Background(), "u1", RunOptions{Force: true})
	require.NoError(t, err)
	second, err := f.service.Run(context.Background(), "u1", RunOptions{Force: true})
	require.NoError(t, err)

	assert.Equal(t, first.Assignment.Do, second.Assignment.Do)
	assert.Equal(t, first.Assignment.Plan, second.Assignment.Plan)
	assert.Equal(t, first.Assignment.Delegate, second.Assignment.Delegate)
	assert.Equal(t, first.Assignment.Delete, second.Assignment.Delete)
	assert.Equal(t, []string{"c"}, second.Assignment.Do)
	assert.Equal(t, []string{"ev", "b"}, second.Assignment.Plan)
	assert.Empty(t, second.Changes)
}

func TestServiceRunNullPriorityEndsInPlan(t *testing.T) {
	f := newFixture(t, withPriority(deadline("a"), task.PriorityDo), deadline("fresh"))
	f.reply = func() (string, error) { return `{"delete":["fresh"],"do":["a"]}`, nil }

	res, err := f.service.Run(context.Background(), "u1", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, res.Swept)
	assert.Equal(t, []string{"fresh"}, res.Assignment.Plan)
	assert.Equal(t, task.PriorityPlan, f.get(t, "fresh").Priority)

	// Clearing the priority leaves the fingerprint alone, so the next pass
	// is skipped, but the sweep still runs.
	none := task.PriorityNone
	_, err = f.repo.Update(context.Background(), "fresh", task.Patch{Priority: &none, ClearRank: true})
	require.NoError(t, err)

	_, events := f.bus.Subscribe(4)
	res, err = f.service.Run(context.Background(), "u1", RunOptions{Trigger: TriggerAuto})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, []string{"fresh"}, res.Swept)
	select {
	case ev := <-events:
		assert.Equal(t, eventbus.PrioritizationCompleted, ev.Type)
		assert.Equal(t, "1", ev.Metadata["swept"])
		assert.Equal(t, string(TriggerAuto), ev.Metadata["trigger"])
	default:
		t.Fatal("expected prioritization.completed after a sweep")
	}
	stored := f.get(t, "fresh")
	assert.Equal(t, task.PriorityPlan, stored.Priority)
	require.NotNil(t, stored.InGroupRank)
	assert.Equal(t, 1, *stored.InGroupRank)
}

func TestServiceRunSuppressedWhileInFlight(t *testing.T) {
	f := newFixture(t, deadline("a"))
	release, ok := f.tracker.TryAcquire("u1", runstate.OpPrioritize)
	require.True(t, ok)
	defer release()

	res, err := f.service.Run(context.Background(), "u1", RunOptions{Trigger: TriggerAuto})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, res.Outcome)
	assert.Zero(t, f.calls.Load())
	assert.Zero(t, f.repo.updates.Load())
}

func TestServiceRunInputErrors(t *testing.T) {
	f := newFixture(t, &task.Task{ID: "done", IsDone: true})

	_, err := f.service.Run(context.Background(), "", RunOptions{})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = f.service.Run(context.Background(), "u1", RunOptions{})
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
	assert.Zero(t, f.repo.updates.Load())
}

func TestServiceRunDryRun(t *testing.T) {
	f := newFixture(t, withPriority(deadline("a"), task.PriorityPlan), deadline("b"))
	f.reply = func() (string, error) { return `{"do":["a"]}`, nil }

	res, err := f.service.Run(context.Background(), "u1", RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, []string{"a"}, res.Assignment.Do)
	assert.Contains(t, res.Diff, "+  a")
	assert.Zero(t, f.repo.updates.Load())

	st, err := f.states.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, st.PrioritizationHash)
}
