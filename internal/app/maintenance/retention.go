// Package maintenance runs scheduled background upkeep over the read model.
package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/logger"
)

const (
	defaultRetentionDays = 30
	defaultSweepSpec     = "@daily"
)

// Sweeper periodically removes availability records whose creation timestamp
// fell behind the retention window. Generation preserves creation timestamps
// across re-runs, so rows that keep being regenerated keep aging and are swept
// once nothing has recreated them from scratch.
type Sweeper struct {
	store     *cache.Store
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int
	schedule  string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for cutoff computation.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetentionDays adjusts how long records are retained before sweeping.
func WithRetentionDays(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithSchedule overrides the cron specification for the sweep.
func WithSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults.
func NewSweeper(store *cache.Store, opts ...Option) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("maintenance: cache store is required")
	}

	sweeper := &Sweeper{
		store:     store,
		now:       time.Now,
		retention: defaultRetentionDays,
		schedule:  defaultSweepSpec,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper, nil
}

// Start registers the sweep with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.sweep(context.Background()); err != nil {
			s.log.Warn("retention sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes the sweep immediately. Primarily used in tests and during
// graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if err := s.sweep(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (s *Sweeper) sweep(ctx context.Context) error {
	cutoff := s.now().AddDate(0, 0, -s.retention)
	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Info("stale records removed",
			zap.Int64("count", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
