package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/mapper"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
)

// holdingCreateHandler inserts a HOLDING row for a new holdings record, but
// only when the instance already has cached rows; an empty instance means full
// generation never ran and the new holding will be picked up by it instead.
type holdingCreateHandler struct{ deps }

func (holdingCreateHandler) EntityType() EntityType { return EntityHolding }
func (holdingCreateHandler) Action() Action         { return ActionCreate }

func (h holdingCreateHandler) Handle(ctx context.Context, evt Event) error {
	var holding gateway.Holding
	if err := evt.DecodeNew(&holding); err != nil {
		return err
	}

	siblings, err := h.store.FindAllByInstance(ctx, holding.InstanceID)
	if err != nil {
		return err
	}
	if len(siblings) == 0 {
		h.skip(evt, "instance has no cached rows", zap.String("instance_id", holding.InstanceID))
		return nil
	}

	rec, err := mapper.FromHolding(ctx, h.ref, evt.TenantID, holding)
	if err != nil {
		return err
	}

	// Instance-level derived fields are copied forward from an existing
	// HOLDING sibling; any row serves as fallback.
	donor := siblings[0]
	for _, s := range siblings {
		if s.RecordType == models.RecordTypeHolding {
			donor = s
			break
		}
	}
	rec.FormatIDs = donor.FormatIDs
	rec.Shared = donor.Shared

	return h.store.Upsert(ctx, rec)
}

// holdingUpdateHandler re-maps every cached row sharing the holdings id, each
// through its own variant remap, refreshing holdings-level fields while
// preserving variant-only state such as due dates and hold counts.
type holdingUpdateHandler struct{ deps }

func (holdingUpdateHandler) EntityType() EntityType { return EntityHolding }
func (holdingUpdateHandler) Action() Action         { return ActionUpdate }

func (h holdingUpdateHandler) Handle(ctx context.Context, evt Event) error {
	var holding gateway.Holding
	if err := evt.DecodeNew(&holding); err != nil {
		return err
	}

	rows, err := h.store.FindAllByHoldingsID(ctx, holding.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		h.skip(evt, "no cached rows for holdings id", zap.String("holdings_id", holding.ID))
		return nil
	}

	remapped := make([]models.AvailabilityRecord, 0, len(rows))
	for _, row := range rows {
		var (
			rec    models.AvailabilityRecord
			mapErr error
		)
		switch {
		case row.RecordType == models.RecordTypeHolding:
			rec, mapErr = mapper.RemapHolding(ctx, h.ref, evt.TenantID, row, holding)
		case row.RecordType == models.RecordTypeItem && row.BoundWith:
			rec, mapErr = mapper.RemapBoundWithItem(ctx, h.ref, evt.TenantID, row, holding)
		default:
			rec, mapErr = mapper.RefreshHoldingFields(ctx, h.ref, evt.TenantID, row, holding)
		}
		if mapErr != nil {
			return fmt.Errorf("events: remap %s %s: %w", row.RecordType, row.RecordID, mapErr)
		}
		remapped = append(remapped, rec)
	}

	return h.store.UpsertBatch(ctx, remapped)
}

// holdingDeleteHandler removes every cached row sharing the holdings id.
type holdingDeleteHandler struct{ deps }

func (holdingDeleteHandler) EntityType() EntityType { return EntityHolding }
func (holdingDeleteHandler) Action() Action         { return ActionDelete }

func (h holdingDeleteHandler) Handle(ctx context.Context, evt Event) error {
	var holding gateway.Holding
	if err := evt.DecodeDeleted(&holding); err != nil {
		return err
	}
	return h.store.DeleteAllByHoldingsID(ctx, holding.ID)
}
