package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
)

// instanceUpdateHandler patches instance-level denormalized fields (format ids,
// consortial shared flag) across every cached row of the instance.
type instanceUpdateHandler struct{ deps }

func (instanceUpdateHandler) EntityType() EntityType { return EntityInstance }
func (instanceUpdateHandler) Action() Action         { return ActionUpdate }

func (h instanceUpdateHandler) Handle(ctx context.Context, evt Event) error {
	var inst gateway.Instance
	if err := evt.DecodeNew(&inst); err != nil {
		return err
	}

	count, err := h.store.CountByInstance(ctx, inst.ID)
	if err != nil {
		return err
	}
	if count == 0 {
		h.skip(evt, "instance has no cached rows", zap.String("instance_id", inst.ID))
		return nil
	}

	var formats datatypes.JSON
	if len(inst.InstanceFormatIDs) > 0 {
		data, err := json.Marshal(inst.InstanceFormatIDs)
		if err != nil {
			return fmt.Errorf("events: marshal format ids: %w", err)
		}
		formats = datatypes.JSON(data)
	}
	if err := h.store.PatchInstanceFormats(ctx, inst.ID, formats); err != nil {
		return err
	}

	// A source appearing where none existed marks the instance as promoted to
	// the shared consortial tier. The reverse transition does not occur.
	var old gateway.Instance
	if err := evt.DecodeOld(&old); err != nil {
		return err
	}
	if becameShared(old, inst) {
		return h.store.MarkInstanceShared(ctx, inst.ID)
	}
	return nil
}

func becameShared(old, updated gateway.Instance) bool {
	if updated.Source == nil || *updated.Source == "" {
		return false
	}
	return old.Source == nil || *old.Source == ""
}
