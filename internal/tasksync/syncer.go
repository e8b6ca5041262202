// Package tasksync writes run outcomes back to the task store.
package tasksync

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/panicerr"
	"github.com/kazz187/eisenhower/pkg/retry"
)

// Report counts per-task write outcomes. A run with failures still completes.
type Report struct {
	Written int
	Failed  []string
}

func (r Report) Partial() bool {
	return len(r.Failed) > 0
}

type Syncer struct {
	repo        task.Repository
	policy      retry.Policy
	concurrency int
}

type Option func(*Syncer)

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Syncer) { s.policy = p }
}

func WithConcurrency(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewSyncer(repo task.Repository, opts ...Option) *Syncer {
	s := &Syncer{
		repo: repo,
		policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   200 * time.Millisecond,
			Multiplier:  2,
			MaxDelay:    2 * time.Second,
		},
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type write struct {
	id    string
	patch task.Patch
}

// apply fans the writes out on a bounded pool. Each write is an idempotent
// upsert retried under the policy; results are returned by task id.
func (s *Syncer) apply(ctx context.Context, writes []write) (map[string]*task.Task, Report) {
	var (
		mu      sync.Mutex
		report  Report
		updated = make(map[string]*task.Task, len(writes))
	)
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for _, w := range writes {
		p.Go(func() {
			var got *task.Task
			err := panicerr.Safe(func() error {
				return retry.Do(ctx, s.policy, func(ctx context.Context, _ int) error {
					t, err := s.repo.Update(ctx, w.id, w.patch)
					if err != nil {
						if cerr.IsCode(err, cerr.NotFound) || cerr.IsCode(err, cerr.InvalidArgument) {
							return retry.Permanent(err)
						}
						return err
					}
					got = t
					return nil
				})
			})()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.WarnContext(ctx, "task write failed", "task_id", w.id, "error", err)
				report.Failed = append(report.Failed, w.id)
				return
			}
			report.Written++
			updated[w.id] = got
		})
	}
	p.Wait()
	slices.Sort(report.Failed)
	return updated, report
}
