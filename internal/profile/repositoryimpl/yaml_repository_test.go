package repositoryimpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/pkg/storage"
)

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	repo := NewYAMLRepository(s)

	p, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, profile.Default("u1"), p)

	p.Tier = profile.TierPro
	p.AutoSchedule = true
	p.PrioritizingRules = "family first"
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, profile.TierPro, got.Tier)
	assert.True(t, got.AutoSchedule)
	assert.Equal(t, "family first", got.PrioritizingRules)

	// Fields missing from an older document keep their defaults.
	require.NoError(t, s.Write(ctx, "profiles/u2.yaml", []byte("tier: pro\n")))
	old, err := repo.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultWorkdayStart, old.WorkdayStart)
	assert.True(t, old.AutoPrioritize)
}
