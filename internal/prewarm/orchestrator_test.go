package prewarm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	testutil "github.com/folio-org/mod-rtac-cache-sub000/internal/database/testutil"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
)

// fakeGenerator records calls and fails the configured instances. It writes a
// marker row per instance so rollback can be observed.
type fakeGenerator struct {
	store *cache.Store
	fail  map[string]error

	mu      sync.Mutex
	calls   []string
	maxSeen int
	active  int
}

func (f *fakeGenerator) Run(ctx context.Context, tenant, instanceID string) error {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.calls = append(f.calls, instanceID)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if err := f.store.Upsert(ctx, models.AvailabilityRecord{
		InstanceID: instanceID,
		RecordType: models.RecordTypeHolding,
		RecordID:   "h-" + instanceID,
		HoldingsID: "h-" + instanceID,
	}); err != nil {
		return err
	}

	if err, ok := f.fail[instanceID]; ok {
		return err
	}
	return nil
}

func newOrchestratorFixture(t *testing.T, fail map[string]error, opts ...Option) (*Orchestrator, *cache.Store, *fakeGenerator) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store, err := cache.NewStore(db)
	require.NoError(t, err)
	jobs, err := NewJobStore(db)
	require.NoError(t, err)

	gen := &fakeGenerator{store: store, fail: fail}
	orch, err := NewOrchestrator(gen, store, jobs, opts...)
	require.NoError(t, err)

	return orch, store, gen
}

func TestSubmitRunsToCompletion(t *testing.T) {
	orch, store, gen := newOrchestratorFixture(t, nil)
	ctx := context.Background()

	ids := []string{"inst-1", "inst-2", "inst-3"}
	job, err := orch.Submit(ctx, "diku", ids)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusRunning, job.Status)
	require.NotEmpty(t, job.ID)

	orch.Wait()

	done, err := orch.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCompleted, done.Status)
	require.NotNil(t, done.EndDate)
	require.Empty(t, done.ErrorMessage)
	require.ElementsMatch(t, ids, gen.calls)

	for _, id := range ids {
		count, err := store.CountByInstance(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
	}
}

func TestFailedInstanceIsRolledBackAndJobFails(t *testing.T) {
	bad := errors.New("upstream exploded")
	orch, store, _ := newOrchestratorFixture(t, map[string]error{"inst-3": bad})
	ctx := context.Background()

	ids := []string{"inst-1", "inst-2", "inst-3", "inst-4", "inst-5"}
	job, err := orch.Submit(ctx, "diku", ids)
	require.NoError(t, err)

	orch.Wait()

	done, err := orch.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusFailed, done.Status)
	require.Contains(t, done.ErrorMessage, "upstream exploded")
	require.NotNil(t, done.EndDate)

	// The failed instance was rolled back; the siblings kept their rows.
	count, err := store.CountByInstance(ctx, "inst-3")
	require.NoError(t, err)
	require.Zero(t, count)

	for _, id := range []string{"inst-1", "inst-2", "inst-4", "inst-5"} {
		count, err := store.CountByInstance(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(1), count, id)
	}
}

func TestBatchesRunSequentially(t *testing.T) {
	orch, _, gen := newOrchestratorFixture(t, nil, WithBatchSize(10))
	ctx := context.Background()

	ids := make([]string, 25)
	for i := range ids {
		ids[i] = "inst-" + string(rune('a'+i/10)) + "-" + string(rune('0'+i%10))
	}

	_, err := orch.Submit(ctx, "diku", ids)
	require.NoError(t, err)
	orch.Wait()

	require.Len(t, gen.calls, 25)
	// Concurrency never exceeds one batch.
	require.LessOrEqual(t, gen.maxSeen, 10)
}

func TestGetStatusUnknownJob(t *testing.T) {
	orch, _, _ := newOrchestratorFixture(t, nil)

	_, err := orch.GetStatus(context.Background(), "no-such-job")
	require.Error(t, err)
}

func TestListJobsNewestFirst(t *testing.T) {
	orch, _, _ := newOrchestratorFixture(t, nil)
	ctx := context.Background()

	first, err := orch.Submit(ctx, "diku", []string{"inst-1"})
	require.NoError(t, err)
	orch.Wait()
	time.Sleep(5 * time.Millisecond)
	second, err := orch.Submit(ctx, "diku", []string{"inst-2"})
	require.NoError(t, err)
	orch.Wait()

	jobs, total, err := orch.ListJobs(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, jobs, 2)
	require.Equal(t, second.ID, jobs[0].ID)
	require.Equal(t, first.ID, jobs[1].ID)
}
