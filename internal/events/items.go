package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/mapper"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
)

// itemCreateHandler inserts an ITEM row derived from the item and the cached
// parent HOLDING context. A missing parent is an eventual-consistency gap and
// degrades to a no-op.
type itemCreateHandler struct{ deps }

func (itemCreateHandler) EntityType() EntityType { return EntityItem }
func (itemCreateHandler) Action() Action         { return ActionCreate }

func (h itemCreateHandler) Handle(ctx context.Context, evt Event) error {
	var item gateway.Item
	if err := evt.DecodeNew(&item); err != nil {
		return err
	}

	parent, err := h.store.FindHolding(ctx, item.HoldingsRecordID)
	if err != nil {
		return err
	}
	if parent == nil {
		h.skip(evt, "parent holding not cached", zap.String("holdings_id", item.HoldingsRecordID))
		return nil
	}

	rec, err := mapper.FromItemWithParent(ctx, h.ref, evt.TenantID, *parent, item)
	if err != nil {
		return err
	}
	return h.store.Upsert(ctx, rec)
}

// itemUpdateHandler remaps the existing ITEM row in place under the same key.
type itemUpdateHandler struct{ deps }

func (itemUpdateHandler) EntityType() EntityType { return EntityItem }
func (itemUpdateHandler) Action() Action         { return ActionUpdate }

func (h itemUpdateHandler) Handle(ctx context.Context, evt Event) error {
	var item gateway.Item
	if err := evt.DecodeNew(&item); err != nil {
		return err
	}

	row, err := h.store.FindItem(ctx, item.ID)
	if err != nil {
		return err
	}
	if row == nil {
		h.skip(evt, "item not cached", zap.String("item_id", item.ID))
		return nil
	}

	rec, err := mapper.RemapItem(ctx, h.ref, evt.TenantID, *row, item)
	if err != nil {
		return err
	}
	return h.store.Upsert(ctx, rec)
}

// itemDeleteHandler unconditionally deletes by item id, including any
// bound-with derivatives carrying the same id.
type itemDeleteHandler struct{ deps }

func (itemDeleteHandler) EntityType() EntityType { return EntityItem }
func (itemDeleteHandler) Action() Action         { return ActionDelete }

func (h itemDeleteHandler) Handle(ctx context.Context, evt Event) error {
	var item gateway.Item
	if err := evt.DecodeDeleted(&item); err != nil {
		return err
	}
	return h.store.DeleteByRecordID(ctx, models.RecordTypeItem, item.ID)
}
