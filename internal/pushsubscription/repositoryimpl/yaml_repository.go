package repositoryimpl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/eisenhower/internal/pushsubscription"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/storage"
)

const pushSubscriptionsPrefix = "push_subscriptions"

// YAMLRepository keeps one document per endpoint under the user's
// directory, so re-registering an endpoint overwrites it.
type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func endpointKey(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:16])
}

func userPrefix(userID string) string {
	return fmt.Sprintf("%s/%s", pushSubscriptionsPrefix, userID)
}

func path(userID, endpoint string) string {
	return fmt.Sprintf("%s/%s.yaml", userPrefix(userID), endpointKey(endpoint))
}

func (r *YAMLRepository) Save(ctx context.Context, s *pushsubscription.Subscription) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal push subscription: %w", err))
	}
	if err := r.storage.Write(ctx, path(s.UserID, s.Endpoint), data); err != nil {
		return cerr.WrapStorageWriteError("push_subscription", err)
	}
	return nil
}

func (r *YAMLRepository) ListByUser(ctx context.Context, userID string) ([]*pushsubscription.Subscription, error) {
	paths, err := r.storage.List(ctx, userPrefix(userID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("push_subscriptions", err)
	}
	sort.Strings(paths)

	var all []*pushsubscription.Subscription
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var s pushsubscription.Subscription
		if err := yaml.Unmarshal(data, &s); err != nil {
			continue
		}
		all = append(all, &s)
	}
	return all, nil
}

func (r *YAMLRepository) DeleteByEndpoint(ctx context.Context, userID, endpoint string) error {
	err := r.storage.Delete(ctx, path(userID, endpoint))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return cerr.WrapStorageDeleteError("push_subscription", err)
	}
	return nil
}
