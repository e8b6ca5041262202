package runstate

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/storage"
)

const statesPrefix = "runstate"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(userID string) string {
	return fmt.Sprintf("%s/%s.yaml", statesPrefix, userID)
}

func (r *YAMLRepository) Get(ctx context.Context, userID string) (*State, error) {
	data, err := r.storage.Read(ctx, path(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return &State{UserID: userID}, nil
	}
	if err != nil {
		return nil, cerr.WrapStorageReadError("run state", err)
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal run state: %w", err))
	}
	s.UserID = userID
	return &s, nil
}

func (r *YAMLRepository) Save(ctx context.Context, s *State) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal run state: %w", err))
	}
	if err := r.storage.Write(ctx, path(s.UserID), data); err != nil {
		return cerr.WrapStorageWriteError("run state", err)
	}
	return nil
}
