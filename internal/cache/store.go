// Package cache implements the keyed store behind the availability read
// model. All three synchronization flows (generation, event reconciliation,
// pre-warm) write here concurrently; correctness rests on the idempotent
// keyed upsert, not on cross-flow locking.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/metrics"
)

// Store provides keyed upsert, point and indexed lookups, and deletes over
// availability records.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("cache store: db is required")
	}
	return &Store{db: db}, nil
}

// conflictColumns is the composite record key.
var conflictColumns = []clause.Column{
	{Name: "instance_id"},
	{Name: "record_type"},
	{Name: "record_id"},
}

// mutableColumns lists every field overwritten on conflict. created_at is
// deliberately excluded so the original creation timestamp survives re-runs;
// retention depends on it.
var mutableColumns = []string{
	"bound_with", "holdings_id", "status", "call_number", "volume", "barcode",
	"location_id", "location_name", "location_code",
	"library_id", "library_name", "library_code",
	"material_type", "loan_type",
	"holdings_statements", "public_notes", "format_ids",
	"due_date", "total_hold_requests", "shared", "updated_at",
}

// UpsertBatch inserts or fully overwrites records by key. Last write wins on
// every mutable field.
func (s *Store) UpsertBatch(ctx context.Context, records []models.AvailabilityRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictColumns,
			DoUpdates: clause.AssignmentColumns(mutableColumns),
		}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("cache store: upsert batch: %w", err)
	}

	for _, rec := range records {
		metrics.RecordsUpserted.WithLabelValues(string(rec.RecordType)).Inc()
	}
	return nil
}

// Upsert inserts or overwrites a single record.
func (s *Store) Upsert(ctx context.Context, record models.AvailabilityRecord) error {
	return s.UpsertBatch(ctx, []models.AvailabilityRecord{record})
}

// FindByID returns the record for the composite key, or nil when absent.
// Absence is a normal condition for event reconciliation, not an error.
func (s *Store) FindByID(ctx context.Context, instanceID string, recordType models.RecordType, recordID string) (*models.AvailabilityRecord, error) {
	var rec models.AvailabilityRecord
	err := s.db.WithContext(ctx).
		Where("instance_id = ? AND record_type = ? AND record_id = ?", instanceID, recordType, recordID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache store: find by id: %w", err)
	}
	return &rec, nil
}

// FindItem returns the primary (non-derivative) ITEM record for an item id,
// or nil when absent.
func (s *Store) FindItem(ctx context.Context, itemID string) (*models.AvailabilityRecord, error) {
	var rec models.AvailabilityRecord
	err := s.db.WithContext(ctx).
		Where("record_type = ? AND record_id = ? AND bound_with = ?", models.RecordTypeItem, itemID, false).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache store: find item: %w", err)
	}
	return &rec, nil
}

// FindPiece returns the PIECE record for a piece id, or nil when absent.
func (s *Store) FindPiece(ctx context.Context, pieceID string) (*models.AvailabilityRecord, error) {
	var rec models.AvailabilityRecord
	err := s.db.WithContext(ctx).
		Where("record_type = ? AND record_id = ?", models.RecordTypePiece, pieceID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache store: find piece: %w", err)
	}
	return &rec, nil
}

// FindHolding returns the HOLDING record for a holdings id, or nil when absent.
func (s *Store) FindHolding(ctx context.Context, holdingsID string) (*models.AvailabilityRecord, error) {
	var rec models.AvailabilityRecord
	err := s.db.WithContext(ctx).
		Where("record_type = ? AND record_id = ?", models.RecordTypeHolding, holdingsID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache store: find holding: %w", err)
	}
	return &rec, nil
}

// FindAllByInstance returns every record of an instance.
func (s *Store) FindAllByInstance(ctx context.Context, instanceID string) ([]models.AvailabilityRecord, error) {
	var records []models.AvailabilityRecord
	if err := s.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("cache store: find by instance: %w", err)
	}
	return records, nil
}

// FindAllByHoldingsID returns every record sharing a holdings id, across all
// record types.
func (s *Store) FindAllByHoldingsID(ctx context.Context, holdingsID string) ([]models.AvailabilityRecord, error) {
	var records []models.AvailabilityRecord
	if err := s.db.WithContext(ctx).
		Where("holdings_id = ?", holdingsID).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("cache store: find by holdings id: %w", err)
	}
	return records, nil
}

// FindAllByLibraryID returns every record referencing a library.
func (s *Store) FindAllByLibraryID(ctx context.Context, libraryID string) ([]models.AvailabilityRecord, error) {
	var records []models.AvailabilityRecord
	if err := s.db.WithContext(ctx).
		Where("library_id = ?", libraryID).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("cache store: find by library id: %w", err)
	}
	return records, nil
}

// FindAllByLocationID returns every record referencing a location.
func (s *Store) FindAllByLocationID(ctx context.Context, locationID string) ([]models.AvailabilityRecord, error) {
	var records []models.AvailabilityRecord
	if err := s.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("cache store: find by location id: %w", err)
	}
	return records, nil
}

// CountByInstance returns the number of cached records for an instance.
func (s *Store) CountByInstance(ctx context.Context, instanceID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.AvailabilityRecord{}).
		Where("instance_id = ?", instanceID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("cache store: count by instance: %w", err)
	}
	return count, nil
}

// DeleteByID removes a single record by composite key.
func (s *Store) DeleteByID(ctx context.Context, instanceID string, recordType models.RecordType, recordID string) error {
	if err := s.db.WithContext(ctx).
		Where("instance_id = ? AND record_type = ? AND record_id = ?", instanceID, recordType, recordID).
		Delete(&models.AvailabilityRecord{}).Error; err != nil {
		return fmt.Errorf("cache store: delete by id: %w", err)
	}
	return nil
}

// DeleteByRecordID removes every record of one type carrying the record id,
// including bound-with derivatives in other instances.
func (s *Store) DeleteByRecordID(ctx context.Context, recordType models.RecordType, recordID string) error {
	if err := s.db.WithContext(ctx).
		Where("record_type = ? AND record_id = ?", recordType, recordID).
		Delete(&models.AvailabilityRecord{}).Error; err != nil {
		return fmt.Errorf("cache store: delete by record id: %w", err)
	}
	return nil
}

// DeleteAllByInstance removes every record of an instance.
func (s *Store) DeleteAllByInstance(ctx context.Context, instanceID string) error {
	if err := s.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Delete(&models.AvailabilityRecord{}).Error; err != nil {
		return fmt.Errorf("cache store: delete by instance: %w", err)
	}
	return nil
}

// DeleteAllByHoldingsID removes every record sharing a holdings id.
func (s *Store) DeleteAllByHoldingsID(ctx context.Context, holdingsID string) error {
	if err := s.db.WithContext(ctx).
		Where("holdings_id = ?", holdingsID).
		Delete(&models.AvailabilityRecord{}).Error; err != nil {
		return fmt.Errorf("cache store: delete by holdings id: %w", err)
	}
	return nil
}

// DeleteOlderThan removes records created before the cutoff, returning the
// number of rows removed. Used by the retention sweeper.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AvailabilityRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("cache store: delete older than: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PatchInstanceFormats bulk-updates the denormalized format ids on every
// record of an instance.
func (s *Store) PatchInstanceFormats(ctx context.Context, instanceID string, formats datatypes.JSON) error {
	if err := s.db.WithContext(ctx).
		Model(&models.AvailabilityRecord{}).
		Where("instance_id = ?", instanceID).
		Update("format_ids", formats).Error; err != nil {
		return fmt.Errorf("cache store: patch instance formats: %w", err)
	}
	return nil
}

// MarkInstanceShared bulk-flags every record of an instance as consortially
// shared. The reverse transition is never applied.
func (s *Store) MarkInstanceShared(ctx context.Context, instanceID string) error {
	if err := s.db.WithContext(ctx).
		Model(&models.AvailabilityRecord{}).
		Where("instance_id = ?", instanceID).
		Update("shared", true).Error; err != nil {
		return fmt.Errorf("cache store: mark instance shared: %w", err)
	}
	return nil
}

// PatchLocation bulk-updates the denormalized location name and code on every
// record referencing the location.
func (s *Store) PatchLocation(ctx context.Context, locationID, name, code string) error {
	if err := s.db.WithContext(ctx).
		Model(&models.AvailabilityRecord{}).
		Where("location_id = ?", locationID).
		Updates(map[string]any{"location_name": name, "location_code": code}).Error; err != nil {
		return fmt.Errorf("cache store: patch location: %w", err)
	}
	return nil
}

// PatchLibrary bulk-updates the denormalized library name and code on every
// record referencing the library.
func (s *Store) PatchLibrary(ctx context.Context, libraryID, name, code string) error {
	if err := s.db.WithContext(ctx).
		Model(&models.AvailabilityRecord{}).
		Where("library_id = ?", libraryID).
		Updates(map[string]any{"library_name": name, "library_code": code}).Error; err != nil {
		return fmt.Errorf("cache store: patch library: %w", err)
	}
	return nil
}
