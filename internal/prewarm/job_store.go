// Package prewarm orchestrates bulk cache generation over explicit instance
// lists, batching the work and recording progress as a persisted job.
package prewarm

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/errors"
)

// JobStore persists pre-warm job bookkeeping.
type JobStore struct {
	db *gorm.DB
}

// NewJobStore constructs a JobStore.
func NewJobStore(db *gorm.DB) (*JobStore, error) {
	if db == nil {
		return nil, stderrors.New("prewarm: db is required")
	}
	return &JobStore{db: db}, nil
}

// Create persists a new job row.
func (s *JobStore) Create(ctx context.Context, job *models.PreWarmJob) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("prewarm: create job: %w", err)
	}
	return nil
}

// Find returns the job by id.
func (s *JobStore) Find(ctx context.Context, id string) (*models.PreWarmJob, error) {
	var job models.PreWarmJob
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&job).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("prewarm: find job: %w", err)
	}
	return &job, nil
}

// List returns jobs ordered newest first.
func (s *JobStore) List(ctx context.Context, limit, offset int) ([]models.PreWarmJob, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.PreWarmJob{}).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("prewarm: count jobs: %w", err)
	}

	var jobs []models.PreWarmJob
	if err := s.db.WithContext(ctx).
		Order("start_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("prewarm: list jobs: %w", err)
	}
	return jobs, total, nil
}

// Update persists mutated job fields.
func (s *JobStore) Update(ctx context.Context, job *models.PreWarmJob) error {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("prewarm: update job: %w", err)
	}
	return nil
}
