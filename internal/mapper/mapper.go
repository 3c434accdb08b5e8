// Package mapper holds the pure transforms from upstream record fragments to
// availability records. Mapping functions read the reference lookup
// synchronously per call and never touch the cache store themselves.
package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/refdata"
)

// Enrichment carries per-item circulation state merged in during generation.
type Enrichment struct {
	DueDate      *time.Time
	HoldRequests *int
}

// PublicNote is a staff-visible note in read-model form.
type PublicNote struct {
	NoteType string `json:"noteType,omitempty"`
	Note     string `json:"note"`
}

// FromHolding maps a holdings record to a HOLDING availability record.
func FromHolding(ctx context.Context, ref *refdata.Lookup, tenant string, h gateway.Holding) (models.AvailabilityRecord, error) {
	rec := models.AvailabilityRecord{
		InstanceID: h.InstanceID,
		RecordType: models.RecordTypeHolding,
		RecordID:   h.ID,
		HoldingsID: h.ID,
	}
	if err := applyHoldingFields(ctx, ref, tenant, &rec, h); err != nil {
		return models.AvailabilityRecord{}, err
	}
	return rec, nil
}

// FromItem maps an item and its parent holding to an ITEM availability record.
func FromItem(ctx context.Context, ref *refdata.Lookup, tenant string, h gateway.Holding, it gateway.Item, enrich Enrichment) (models.AvailabilityRecord, error) {
	rec := models.AvailabilityRecord{
		InstanceID:        h.InstanceID,
		RecordType:        models.RecordTypeItem,
		RecordID:          it.ID,
		HoldingsID:        h.ID,
		DueDate:           enrich.DueDate,
		TotalHoldRequests: enrich.HoldRequests,
	}
	if err := applyHoldingFields(ctx, ref, tenant, &rec, h); err != nil {
		return models.AvailabilityRecord{}, err
	}
	if err := applyItemFields(ctx, ref, tenant, &rec, it); err != nil {
		return models.AvailabilityRecord{}, err
	}
	return rec, nil
}

// FromItemWithParent maps an item onto the denormalized context of an existing
// parent HOLDING record. Used when the holding fragment itself is unavailable,
// such as incremental item creation.
func FromItemWithParent(ctx context.Context, ref *refdata.Lookup, tenant string, parent models.AvailabilityRecord, it gateway.Item) (models.AvailabilityRecord, error) {
	rec := parent
	rec.RecordType = models.RecordTypeItem
	rec.RecordID = it.ID
	rec.HoldingsID = parent.RecordID
	rec.BoundWith = false
	rec.DueDate = nil
	rec.TotalHoldRequests = nil
	rec.CreatedAt = time.Time{}
	rec.UpdatedAt = time.Time{}

	if err := applyItemFields(ctx, ref, tenant, &rec, it); err != nil {
		return models.AvailabilityRecord{}, err
	}
	return rec, nil
}

// FromPieceWithParent maps a piece onto the denormalized context of an
// existing parent HOLDING record, for incremental piece creation.
func FromPieceWithParent(parent models.AvailabilityRecord, p gateway.Piece) models.AvailabilityRecord {
	rec := parent
	rec.RecordType = models.RecordTypePiece
	rec.RecordID = p.ID
	rec.HoldingsID = parent.RecordID
	rec.BoundWith = false
	rec.DueDate = nil
	rec.TotalHoldRequests = nil
	rec.Barcode = ""
	rec.MaterialType = ""
	rec.LoanType = ""
	rec.CreatedAt = time.Time{}
	rec.UpdatedAt = time.Time{}

	applyPieceFields(&rec, p)
	return rec
}

// FromPiece maps a piece and its parent holding to a PIECE availability record.
func FromPiece(ctx context.Context, ref *refdata.Lookup, tenant string, h gateway.Holding, p gateway.Piece) (models.AvailabilityRecord, error) {
	rec := models.AvailabilityRecord{
		InstanceID: h.InstanceID,
		RecordType: models.RecordTypePiece,
		RecordID:   p.ID,
		HoldingsID: h.ID,
	}
	if err := applyHoldingFields(ctx, ref, tenant, &rec, h); err != nil {
		return models.AvailabilityRecord{}, err
	}
	applyPieceFields(&rec, p)
	return rec, nil
}

// RemapHolding refreshes the holdings-level fields of an existing HOLDING
// record from an updated fragment, preserving everything else.
func RemapHolding(ctx context.Context, ref *refdata.Lookup, tenant string, existing models.AvailabilityRecord, h gateway.Holding) (models.AvailabilityRecord, error) {
	rec := existing
	if err := applyHoldingFields(ctx, ref, tenant, &rec, h); err != nil {
		return models.AvailabilityRecord{}, err
	}
	return rec, nil
}

// RemapItem refreshes the item-level fields of an existing ITEM record from an
// updated item fragment. Variant-only state the fragment never carries
// (dueDate, hold count) is preserved.
func RemapItem(ctx context.Context, ref *refdata.Lookup, tenant string, existing models.AvailabilityRecord, it gateway.Item) (models.AvailabilityRecord, error) {
	rec := existing
	if it.HoldingsRecordID != "" {
		rec.HoldingsID = it.HoldingsRecordID
	}
	if err := applyItemFields(ctx, ref, tenant, &rec, it); err != nil {
		return models.AvailabilityRecord{}, err
	}
	return rec, nil
}

// RemapPiece refreshes the piece-level fields of an existing PIECE record from
// an updated piece fragment.
func RemapPiece(existing models.AvailabilityRecord, p gateway.Piece) models.AvailabilityRecord {
	rec := existing
	if p.HoldingID != "" {
		rec.HoldingsID = p.HoldingID
	}
	applyPieceFields(&rec, p)
	return rec
}

// RemapBoundWithItem refreshes the holdings-level fields of a bound-with
// derivative ITEM record from the updated target holding. The derivative keeps
// its item-level state (status, volume, dueDate, hold count) untouched.
func RemapBoundWithItem(ctx context.Context, ref *refdata.Lookup, tenant string, existing models.AvailabilityRecord, h gateway.Holding) (models.AvailabilityRecord, error) {
	rec := existing
	if err := applyHoldingFields(ctx, ref, tenant, &rec, h); err != nil {
		return models.AvailabilityRecord{}, err
	}
	return rec, nil
}

// RefreshHoldingFields applies holdings-level fields (call number, statements,
// notes, location and library refs) to any record sharing the holdings id.
func RefreshHoldingFields(ctx context.Context, ref *refdata.Lookup, tenant string, existing models.AvailabilityRecord, h gateway.Holding) (models.AvailabilityRecord, error) {
	rec := existing
	if err := applyHoldingFields(ctx, ref, tenant, &rec, h); err != nil {
		return models.AvailabilityRecord{}, err
	}
	return rec, nil
}

// ItemVolume derives the display volume of an item. Precedence:
// displaySummary, then enumeration with optional chronology, then volume,
// then chronology. Nothing present yields nil.
func ItemVolume(it gateway.Item) *string {
	parts := volumeParts(it.DisplaySummary, it.Enumeration, it.Chronology, it.Volume, true)
	if parts == nil {
		return nil
	}
	v := wrapVolume(parts)
	return &v
}

// PieceVolume derives the display volume of a piece using the same precedence
// as items, minus the volume fallback. Nothing present yields the empty
// string rather than nil.
func PieceVolume(p gateway.Piece) string {
	parts := volumeParts(p.DisplaySummary, p.Enumeration, p.Chronology, "", false)
	if parts == nil {
		return ""
	}
	return wrapVolume(parts)
}

func volumeParts(displaySummary, enumeration, chronology, volume string, withVolume bool) []string {
	switch {
	case displaySummary != "":
		return []string{displaySummary}
	case enumeration != "":
		parts := []string{enumeration}
		if chronology != "" {
			parts = append(parts, chronology)
		}
		return parts
	case withVolume && volume != "":
		return []string{volume}
	case chronology != "":
		return []string{chronology}
	default:
		return nil
	}
}

func wrapVolume(parts []string) string {
	out := "("
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out + ")"
}

func applyHoldingFields(ctx context.Context, ref *refdata.Lookup, tenant string, rec *models.AvailabilityRecord, h gateway.Holding) error {
	rec.CallNumber = h.CallNumber

	statements, err := marshalStatements(h.HoldingsStatements)
	if err != nil {
		return err
	}
	rec.HoldingsStatements = statements

	notes, err := publicNotes(ctx, ref, tenant, h.Notes)
	if err != nil {
		return err
	}
	rec.PublicNotes = notes

	return applyLocation(ctx, ref, tenant, rec, h.EffectiveLocation())
}

func applyItemFields(ctx context.Context, ref *refdata.Lookup, tenant string, rec *models.AvailabilityRecord, it gateway.Item) error {
	rec.Status = it.Status.Name
	rec.Barcode = it.Barcode
	rec.Volume = ItemVolume(it)

	if it.MaterialTypeID != "" {
		materials, err := ref.Map(ctx, tenant, refdata.KindMaterialTypes)
		if err != nil {
			return err
		}
		rec.MaterialType = materials[it.MaterialTypeID].Name
	}

	if loanTypeID := it.LoanTypeID(); loanTypeID != "" {
		loanTypes, err := ref.Map(ctx, tenant, refdata.KindLoanTypes)
		if err != nil {
			return err
		}
		rec.LoanType = loanTypes[loanTypeID].Name
	}

	// Items without their own effective location inherit the holding's.
	if it.EffectiveLocationID != "" {
		return applyLocation(ctx, ref, tenant, rec, it.EffectiveLocationID)
	}
	return nil
}

func applyPieceFields(rec *models.AvailabilityRecord, p gateway.Piece) {
	rec.Status = p.ReceivingStatus
	volume := PieceVolume(p)
	rec.Volume = &volume
}

func applyLocation(ctx context.Context, ref *refdata.Lookup, tenant string, rec *models.AvailabilityRecord, locationID string) error {
	if locationID == "" {
		return nil
	}

	locations, err := ref.Map(ctx, tenant, refdata.KindLocations)
	if err != nil {
		return err
	}
	loc := locations[locationID]

	rec.LocationID = locationID
	rec.LocationName = loc.Name
	rec.LocationCode = loc.Code

	if loc.LibraryID == "" {
		return nil
	}

	libraries, err := ref.Map(ctx, tenant, refdata.KindLibraries)
	if err != nil {
		return err
	}
	lib := libraries[loc.LibraryID]

	rec.LibraryID = loc.LibraryID
	rec.LibraryName = lib.Name
	rec.LibraryCode = lib.Code
	return nil
}

// publicNotes filters out staff-only notes and resolves note type names.
func publicNotes(ctx context.Context, ref *refdata.Lookup, tenant string, notes []gateway.Note) (datatypes.JSON, error) {
	visible := make([]PublicNote, 0, len(notes))
	var noteTypes map[string]refdata.Entry

	for _, n := range notes {
		if n.StaffOnly {
			continue
		}
		note := PublicNote{Note: n.Note}
		if n.NoteTypeID != "" {
			if noteTypes == nil {
				m, err := ref.Map(ctx, tenant, refdata.KindNoteTypes)
				if err != nil {
					return nil, err
				}
				noteTypes = m
			}
			note.NoteType = noteTypes[n.NoteTypeID].Name
		}
		visible = append(visible, note)
	}

	if len(visible) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(visible)
	if err != nil {
		return nil, fmt.Errorf("mapper: marshal notes: %w", err)
	}
	return datatypes.JSON(data), nil
}

func marshalStatements(statements []gateway.Statement) (datatypes.JSON, error) {
	if len(statements) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(statements)
	if err != nil {
		return nil, fmt.Errorf("mapper: marshal statements: %w", err)
	}
	return datatypes.JSON(data), nil
}
