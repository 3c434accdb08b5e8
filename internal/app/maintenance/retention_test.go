package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	testutil "github.com/folio-org/mod-rtac-cache-sub000/internal/database/testutil"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
)

func TestSweeperRunOnceRemovesStaleRecords(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store, err := cache.NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	stale := models.AvailabilityRecord{
		InstanceID: "inst-1",
		RecordType: models.RecordTypeHolding,
		RecordID:   "h-1",
		HoldingsID: "h-1",
		CreatedAt:  now.AddDate(0, 0, -45),
	}
	fresh := models.AvailabilityRecord{
		InstanceID: "inst-1",
		RecordType: models.RecordTypeItem,
		RecordID:   "it-1",
		HoldingsID: "h-1",
		CreatedAt:  now.AddDate(0, 0, -5),
	}
	require.NoError(t, store.UpsertBatch(ctx, []models.AvailabilityRecord{stale, fresh}))

	sweeper, err := NewSweeper(store,
		WithRetentionDays(30),
		WithNow(func() time.Time { return now }),
	)
	require.NoError(t, err)

	require.NoError(t, sweeper.RunOnce(ctx))

	rows, err := store.FindAllByInstance(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "it-1", rows[0].RecordID)
}

func TestSweeperRequiresStore(t *testing.T) {
	_, err := NewSweeper(nil)
	require.Error(t, err)
}

func TestSweeperKeepsEverythingInsideWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store, err := cache.NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.AvailabilityRecord{
		InstanceID: "inst-1",
		RecordType: models.RecordTypeHolding,
		RecordID:   "h-1",
		HoldingsID: "h-1",
	}))

	sweeper, err := NewSweeper(store, WithRetentionDays(30))
	require.NoError(t, err)
	require.NoError(t, sweeper.RunOnce(ctx))

	count, err := store.CountByInstance(ctx, "inst-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
