package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamy/internal/domain/usage"
	"teamy/internal/testsupport"
	"teamy/pkg/errors"
)

func newTestRepo(t *testing.T) *UsageRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testsupport.LoadRedisConfigFromEnv(t)
	client := testsupport.NewRedisClient(t, cfg)
	return NewUsageRepository(client, cfg.KeyPrefix)
}

func TestUsageRepository_IncrementAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, 42, usage.CommandStart))
	require.NoError(t, repo.Increment(ctx, 42, usage.CommandTZ))
	require.NoError(t, repo.Increment(ctx, 42, usage.CommandTZ))

	rec, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Count(usage.CommandStart))
	assert.Equal(t, int64(2), rec.Count(usage.CommandTZ))
	assert.Zero(t, rec.Count(usage.CommandPremium))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUsageRepository_TouchCreatesZeroRecord(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Touch(ctx, 7))
	require.NoError(t, repo.Touch(ctx, 7))

	rec, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, rec.Total())

	_, err = repo.Get(ctx, 8)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestUsageRepository_ListAndDeleteAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []int64{30, 10, 20} {
		require.NoError(t, repo.Increment(ctx, id, usage.CommandSummarize))
	}

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{records[0].UserID, records[1].UserID, records[2].UserID})

	removed, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	records, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = repo.Get(ctx, 10)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
