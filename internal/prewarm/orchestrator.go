package prewarm

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/logger"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/metrics"
)

// defaultBatchSize bounds concurrent upstream load during a pre-warm run.
const defaultBatchSize = 30

// Generator runs full cache generation for a single instance.
type Generator interface {
	Run(ctx context.Context, tenant, instanceID string) error
}

// Orchestrator fans a pre-warm request out over batches of instances. Batches
// run strictly one after another; instances within a batch run concurrently.
// An instance that fails mid-generation has its partial rows rolled back so
// the cache never serves a half-built instance.
type Orchestrator struct {
	gen       Generator
	store     *cache.Store
	jobs      *JobStore
	batchSize int
	log       *zap.Logger

	wg sync.WaitGroup
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithBatchSize overrides the per-batch instance count.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(gen Generator, store *cache.Store, jobs *JobStore, opts ...Option) (*Orchestrator, error) {
	if gen == nil {
		return nil, stderrors.New("prewarm: generator is required")
	}
	if store == nil {
		return nil, stderrors.New("prewarm: cache store is required")
	}
	if jobs == nil {
		return nil, stderrors.New("prewarm: job store is required")
	}

	o := &Orchestrator{
		gen:       gen,
		store:     store,
		jobs:      jobs,
		batchSize: defaultBatchSize,
		log:       logger.WithModule("prewarm"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Submit persists a RUNNING job and starts the run in the background. The
// returned job carries the id callers poll for status.
func (o *Orchestrator) Submit(ctx context.Context, tenant string, instanceIDs []string) (*models.PreWarmJob, error) {
	job := &models.PreWarmJob{
		Status:    models.JobStatusRunning,
		StartDate: time.Now().UTC(),
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	metrics.PrewarmJobs.WithLabelValues(string(models.JobStatusRunning)).Inc()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		// Detached from the request context so the run survives the caller.
		o.run(context.Background(), job, tenant, instanceIDs)
	}()

	return job, nil
}

// GetStatus returns the job by id.
func (o *Orchestrator) GetStatus(ctx context.Context, id string) (*models.PreWarmJob, error) {
	return o.jobs.Find(ctx, id)
}

// ListJobs returns jobs newest first.
func (o *Orchestrator) ListJobs(ctx context.Context, limit, offset int) ([]models.PreWarmJob, int64, error) {
	return o.jobs.List(ctx, limit, offset)
}

// Wait blocks until every background run has finished. Used during shutdown
// and by tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, job *models.PreWarmJob, tenant string, instanceIDs []string) {
	started := time.Now()
	var (
		mu       sync.Mutex
		firstErr error
		failed   int
	)

	for start := 0; start < len(instanceIDs); start += o.batchSize {
		end := start + o.batchSize
		if end > len(instanceIDs) {
			end = len(instanceIDs)
		}

		// One instance failing must not cancel its batch siblings, so the
		// batch barrier is a plain WaitGroup rather than a shared-context
		// group.
		var batch sync.WaitGroup
		for _, id := range instanceIDs[start:end] {
			batch.Add(1)
			go func(instanceID string) {
				defer batch.Done()
				if err := o.warmInstance(ctx, tenant, instanceID); err != nil {
					mu.Lock()
					failed++
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}(id)
		}
		batch.Wait()
	}

	now := time.Now().UTC()
	job.EndDate = &now
	if firstErr != nil {
		job.Status = models.JobStatusFailed
		job.ErrorMessage = firstErr.Error()
	} else {
		job.Status = models.JobStatusCompleted
	}
	metrics.PrewarmJobs.WithLabelValues(string(job.Status)).Inc()

	if err := o.jobs.Update(ctx, job); err != nil {
		o.log.Error("failed to persist terminal job status",
			zap.String("job_id", job.ID), zap.Error(err))
	}

	o.log.Info("pre-warm run finished",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.Status)),
		zap.Int("instances", len(instanceIDs)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(started)),
	)
}

// warmInstance generates one instance and rolls its rows back on failure.
func (o *Orchestrator) warmInstance(ctx context.Context, tenant, instanceID string) error {
	err := o.gen.Run(ctx, tenant, instanceID)
	if err == nil {
		return nil
	}

	o.log.Warn("instance generation failed, rolling back partial rows",
		zap.String("instance_id", instanceID), zap.Error(err))
	if delErr := o.store.DeleteAllByInstance(ctx, instanceID); delErr != nil {
		o.log.Error("rollback failed, instance may hold partial rows",
			zap.String("instance_id", instanceID), zap.Error(delErr))
	}
	return err
}
