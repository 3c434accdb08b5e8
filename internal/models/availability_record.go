package models

import (
	"time"

	"gorm.io/datatypes"
)

// RecordType discriminates the upstream source of an availability record.
type RecordType string

const (
	RecordTypeHolding RecordType = "HOLDING"
	RecordTypeItem    RecordType = "ITEM"
	RecordTypePiece   RecordType = "PIECE"
)

// AvailabilityRecord is one denormalized row of the availability read model.
// The composite key (InstanceID, RecordType, RecordID) admits at most one row;
// upserts overwrite every mutable field, so re-running generation for an
// unchanged instance is a no-op at the data level.
type AvailabilityRecord struct {
	InstanceID string     `gorm:"primaryKey;type:uuid" json:"instanceId"`
	RecordType RecordType `gorm:"primaryKey;type:varchar(16)" json:"recordType"`
	RecordID   string     `gorm:"primaryKey;type:uuid" json:"recordId"`

	// BoundWith marks a derived secondary row synthesised for an item shelved
	// under a holdings record other than its primary one.
	BoundWith bool `gorm:"default:false" json:"boundWith"`

	HoldingsID string `gorm:"type:uuid;index" json:"holdingsId"`

	Status     string  `gorm:"type:varchar(64)" json:"status"`
	CallNumber string  `gorm:"type:varchar(255)" json:"callNumber"`
	Volume     *string `gorm:"type:varchar(255)" json:"volume,omitempty"`
	Barcode    string  `gorm:"type:varchar(64)" json:"barcode,omitempty"`

	LocationID   string `gorm:"type:uuid;index" json:"locationId"`
	LocationName string `gorm:"type:varchar(255)" json:"locationName"`
	LocationCode string `gorm:"type:varchar(64)" json:"locationCode"`

	LibraryID   string `gorm:"type:uuid;index" json:"libraryId"`
	LibraryName string `gorm:"type:varchar(255)" json:"libraryName"`
	LibraryCode string `gorm:"type:varchar(64)" json:"libraryCode"`

	MaterialType string `gorm:"type:varchar(255)" json:"materialType,omitempty"`
	LoanType     string `gorm:"type:varchar(255)" json:"loanType,omitempty"`

	HoldingsStatements datatypes.JSON `json:"holdingsStatements,omitempty"`
	PublicNotes        datatypes.JSON `json:"publicNotes,omitempty"`

	// FormatIDs carries instance-level format identifiers denormalized onto
	// every row of the instance.
	FormatIDs datatypes.JSON `json:"instanceFormatIds,omitempty"`

	DueDate           *time.Time `json:"dueDate,omitempty"`
	TotalHoldRequests *int       `json:"totalHoldRequests,omitempty"`

	// Shared flags a row visible across tenants in a consortial deployment.
	Shared bool `gorm:"default:false" json:"shared"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName keeps the read-model table clearly separated from job bookkeeping.
func (AvailabilityRecord) TableName() string {
	return "availability_records"
}

// Key returns the composite identity of the record.
func (r AvailabilityRecord) Key() RecordKey {
	return RecordKey{InstanceID: r.InstanceID, RecordType: r.RecordType, RecordID: r.RecordID}
}

// RecordKey identifies a single availability record.
type RecordKey struct {
	InstanceID string
	RecordType RecordType
	RecordID   string
}
