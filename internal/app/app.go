// Package app wires repositories, services and runs from the environment.
// The server and the CLI share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kazz187/eisenhower/internal/completion"
	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/profile"
	profilerepo "github.com/kazz187/eisenhower/internal/profile/repositoryimpl"
	"github.com/kazz187/eisenhower/internal/runstate"
	"github.com/kazz187/eisenhower/internal/scheduling"
	"github.com/kazz187/eisenhower/internal/task"
	taskrepo "github.com/kazz187/eisenhower/internal/task/repositoryimpl"
	"github.com/kazz187/eisenhower/internal/tasksync"
	"github.com/kazz187/eisenhower/pkg/retry"
	"github.com/kazz187/eisenhower/pkg/storage"
)

type App struct {
	Env           *config.Env
	Storage       storage.Storage
	Bus           *eventbus.Bus
	Tasks         task.Repository
	Profiles      profile.Repository
	ProfileSource *profile.Source
	Rules         *profile.RulesDir
	States        runstate.Repository
	Tracker       *runstate.Tracker
	Completer     completion.Completer

	Prioritization *prioritization.Service
	Scheduling     *scheduling.Service

	db *sql.DB
}

// NewStorage opens the document store selected by env.
func NewStorage(ctx context.Context, env *config.StorageEnv) (storage.Storage, error) {
	switch env.Type {
	case "s3":
		s, err := storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		s, err := storage.NewLocalStorage(env.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, nil
	}
}

// New builds the application. completer may be nil, in which case the
// Claude completer configured by env is used.
func New(ctx context.Context, env *config.Env, completer completion.Completer) (*App, error) {
	store, err := NewStorage(ctx, &env.StorageEnv)
	if err != nil {
		return nil, err
	}
	a := &App{
		Env:     env,
		Storage: store,
		Bus:     eventbus.New(),
		States:  runstate.NewYAMLRepository(store),
		Tracker: runstate.NewTracker(),
	}

	switch env.TaskStore {
	case "postgres":
		db, err := taskrepo.OpenPostgres(ctx, env.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := taskrepo.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.Tasks = repo
	default:
		a.Tasks = taskrepo.NewYAMLRepository(store)
	}

	a.Profiles = profilerepo.NewYAMLRepository(store)
	if env.RulesDir != "" {
		a.Rules = profile.NewRulesDir(env.RulesDir)
		if err := a.Rules.Load(); err != nil {
			slog.Warn("failed to load rules directory", "dir", env.RulesDir, "error", err)
		}
	}
	a.ProfileSource = profile.NewSource(a.Profiles, a.Rules)

	if completer == nil {
		policy := retry.DefaultPolicy()
		policy.MaxAttempts = env.CompletionEnv.MaxAttempts
		policy.BaseDelay = env.CompletionEnv.BaseDelay
		completer = completion.NewClaudeCompleter(env.CompletionEnv.WorkDir, env.CompletionEnv.Timeout, policy)
	}
	a.Completer = completer

	syncer := tasksync.NewSyncer(a.Tasks, tasksync.WithConcurrency(env.PersistConcurrency))
	loc := env.Location()
	a.Prioritization = prioritization.NewService(
		a.Tasks, a.ProfileSource, a.States, a.Tracker,
		prioritization.NewPrioritizer(completer), syncer, a.Bus,
	).WithDefaultLocation(loc)
	a.Scheduling = scheduling.NewService(
		a.Tasks, a.ProfileSource, a.States, a.Tracker,
		completer, syncer, a.Bus,
	).WithDefaultLocation(loc)
	return a, nil
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
