package repositoryimpl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/storage"
)

const tasksPrefix = "tasks"

// YAMLRepository keeps one YAML document per task under tasks/.
type YAMLRepository struct {
	storage storage.Storage
	now     func() time.Time
	// mu serializes read-modify-write in Update.
	mu sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s, now: time.Now}
}

// WithClock replaces the clock used to stamp UpdatedAt.
func (r *YAMLRepository) WithClock(now func() time.Time) *YAMLRepository {
	r.now = now
	return r
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	return r.write(ctx, t)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task %s: %w", id, err))
	}
	return &t, nil
}

func (r *YAMLRepository) ListByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	var out []*task.Task
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var t task.Task
		if err := yaml.Unmarshal(data, &t); err != nil {
			continue
		}
		if t.UserID != userID {
			continue
		}
		out = append(out, &t)
	}
	task.SortByCreation(out)
	return out, nil
}

func (r *YAMLRepository) ListActiveByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	all, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return task.Active(all), nil
}

func (r *YAMLRepository) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(t, r.now())
	if err := r.write(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *YAMLRepository) write(ctx context.Context, t *task.Task) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, path(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}
