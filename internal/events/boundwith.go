package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
)

// BoundWithPart links an item to an additional holdings record beyond its own.
type BoundWithPart struct {
	ItemID           string `json:"itemId"`
	HoldingsRecordID string `json:"holdingsRecordId"`
}

// boundWithCreateHandler projects the primary ITEM row into the target
// holding's instance as a derivative row. The derivative carries the target's
// holdings-level context and the item's own circulation state.
type boundWithCreateHandler struct{ deps }

func (boundWithCreateHandler) EntityType() EntityType { return EntityBoundWith }
func (boundWithCreateHandler) Action() Action         { return ActionCreate }

func (h boundWithCreateHandler) Handle(ctx context.Context, evt Event) error {
	var part BoundWithPart
	if err := evt.DecodeNew(&part); err != nil {
		return err
	}

	primary, err := h.store.FindItem(ctx, part.ItemID)
	if err != nil {
		return err
	}
	if primary == nil {
		h.skip(evt, "item not cached", zap.String("item_id", part.ItemID))
		return nil
	}
	if primary.HoldingsID == part.HoldingsRecordID {
		// The part references the item's own holding; the primary row already
		// covers it.
		h.skip(evt, "part references the item's own holding", zap.String("item_id", part.ItemID))
		return nil
	}

	target, err := h.store.FindHolding(ctx, part.HoldingsRecordID)
	if err != nil {
		return err
	}
	if target == nil {
		h.skip(evt, "target holding not cached", zap.String("holdings_id", part.HoldingsRecordID))
		return nil
	}

	derivative := *primary
	derivative.InstanceID = target.InstanceID
	derivative.HoldingsID = target.RecordID
	derivative.BoundWith = true
	derivative.CallNumber = target.CallNumber
	derivative.HoldingsStatements = target.HoldingsStatements
	derivative.PublicNotes = target.PublicNotes
	derivative.LocationID = target.LocationID
	derivative.LocationName = target.LocationName
	derivative.LocationCode = target.LocationCode
	derivative.LibraryID = target.LibraryID
	derivative.LibraryName = target.LibraryName
	derivative.LibraryCode = target.LibraryCode
	derivative.FormatIDs = target.FormatIDs
	derivative.Shared = target.Shared
	derivative.UpdatedAt = time.Time{}

	return h.store.Upsert(ctx, derivative)
}

// boundWithDeleteHandler removes the derivative row in the target instance.
// The primary row is never deleted here; item deletion handles that.
type boundWithDeleteHandler struct{ deps }

func (boundWithDeleteHandler) EntityType() EntityType { return EntityBoundWith }
func (boundWithDeleteHandler) Action() Action         { return ActionDelete }

func (h boundWithDeleteHandler) Handle(ctx context.Context, evt Event) error {
	var part BoundWithPart
	if err := evt.DecodeDeleted(&part); err != nil {
		return err
	}

	target, err := h.store.FindHolding(ctx, part.HoldingsRecordID)
	if err != nil {
		return err
	}
	if target == nil {
		h.skip(evt, "target holding not cached", zap.String("holdings_id", part.HoldingsRecordID))
		return nil
	}

	row, err := h.store.FindByID(ctx, target.InstanceID, models.RecordTypeItem, part.ItemID)
	if err != nil {
		return err
	}
	if row == nil {
		h.skip(evt, "derivative row not cached", zap.String("item_id", part.ItemID))
		return nil
	}
	if !row.BoundWith {
		h.skip(evt, "row is the item's primary record", zap.String("item_id", part.ItemID))
		return nil
	}

	return h.store.DeleteByID(ctx, target.InstanceID, models.RecordTypeItem, part.ItemID)
}
