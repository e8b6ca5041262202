package repositoryimpl

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/storage"
)

const profilesPrefix = "profiles"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(userID string) string {
	return fmt.Sprintf("%s/%s.yaml", profilesPrefix, userID)
}

func (r *YAMLRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	data, err := r.storage.Read(ctx, path(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return profile.Default(userID), nil
	}
	if err != nil {
		return nil, cerr.WrapStorageReadError("profile", err)
	}
	p := profile.Default(userID)
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal profile: %w", err))
	}
	p.UserID = userID
	return p, nil
}

func (r *YAMLRepository) Save(ctx context.Context, p *profile.Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal profile: %w", err))
	}
	if err := r.storage.Write(ctx, path(p.UserID), data); err != nil {
		return cerr.WrapStorageWriteError("profile", err)
	}
	return nil
}
