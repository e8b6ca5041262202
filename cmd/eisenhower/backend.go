package main

import (
	"context"

	"github.com/kazz187/eisenhower/internal/app"
	"github.com/kazz187/eisenhower/internal/client"
	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/scheduling"
	"github.com/kazz187/eisenhower/internal/task"
)

// backend runs the core operations either in-process or against a server.
type backend interface {
	Prioritize(ctx context.Context, force, dryRun bool) (*prioritization.RunResult, error)
	Schedule(ctx context.Context) (*scheduling.RunResult, error)
	ListEligible(ctx context.Context) ([]*task.Task, []scheduling.Exclusion, error)
	// Fingerprint returns the current task fingerprint and the stored one.
	Fingerprint(ctx context.Context) (current, stored string, err error)
}

type localBackend struct {
	app  *app.App
	user string
}

func newLocalBackend(ctx context.Context, env *config.Env, user string) (*localBackend, error) {
	a, err := app.New(ctx, env, nil)
	if err != nil {
		return nil, err
	}
	return &localBackend{app: a, user: user}, nil
}

func (b *localBackend) Close() error {
	return b.app.Close()
}

func (b *localBackend) Prioritize(ctx context.Context, force, dryRun bool) (*prioritization.RunResult, error) {
	return b.app.Prioritization.Run(ctx, b.user, prioritization.RunOptions{
		Force:   force,
		Trigger: prioritization.TriggerManual,
		DryRun:  dryRun,
	})
}

func (b *localBackend) Schedule(ctx context.Context) (*scheduling.RunResult, error) {
	return b.app.Scheduling.Run(ctx, b.user, scheduling.TriggerManual)
}

func (b *localBackend) ListEligible(ctx context.Context) ([]*task.Task, []scheduling.Exclusion, error) {
	return b.app.Scheduling.Explain(ctx, b.user)
}

func (b *localBackend) Fingerprint(ctx context.Context) (string, string, error) {
	state, current, err := b.app.Prioritization.State(ctx, b.user)
	if err != nil {
		return "", "", err
	}
	return current, state.PrioritizationHash, nil
}

type remoteBackend struct {
	c *client.Client
}

func (b remoteBackend) Prioritize(ctx context.Context, force, dryRun bool) (*prioritization.RunResult, error) {
	return b.c.Prioritize(ctx, force, dryRun)
}

func (b remoteBackend) Schedule(ctx context.Context) (*scheduling.RunResult, error) {
	return b.c.Schedule(ctx)
}

func (b remoteBackend) ListEligible(ctx context.Context) ([]*task.Task, []scheduling.Exclusion, error) {
	return b.c.ListEligible(ctx)
}

func (b remoteBackend) Fingerprint(ctx context.Context) (string, string, error) {
	res, err := b.c.RunState(ctx)
	if err != nil {
		return "", "", err
	}
	var stored string
	if res.State != nil {
		stored = res.State.PrioritizationHash
	}
	return res.CurrentHash, stored, nil
}
