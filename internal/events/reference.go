package events

import (
	"context"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/refdata"
)

// locationUpdateHandler evicts the tenant's location lookup and patches the
// denormalized location name and code on every affected row.
type locationUpdateHandler struct{ deps }

func (locationUpdateHandler) EntityType() EntityType { return EntityLocation }
func (locationUpdateHandler) Action() Action         { return ActionUpdate }

func (h locationUpdateHandler) Handle(ctx context.Context, evt Event) error {
	var loc gateway.Location
	if err := evt.DecodeNew(&loc); err != nil {
		return err
	}
	h.ref.Evict(evt.TenantID, refdata.KindLocations)
	return h.store.PatchLocation(ctx, loc.ID, loc.Name, loc.Code)
}

// locationDeleteHandler only evicts the lookup; cached rows keep their last
// known location fields until their records are regenerated or removed.
type locationDeleteHandler struct{ deps }

func (locationDeleteHandler) EntityType() EntityType { return EntityLocation }
func (locationDeleteHandler) Action() Action         { return ActionDelete }

func (h locationDeleteHandler) Handle(_ context.Context, evt Event) error {
	h.ref.Evict(evt.TenantID, refdata.KindLocations)
	return nil
}

// libraryUpdateHandler evicts the tenant's library lookup and patches the
// denormalized library name and code on every affected row.
type libraryUpdateHandler struct{ deps }

func (libraryUpdateHandler) EntityType() EntityType { return EntityLibrary }
func (libraryUpdateHandler) Action() Action         { return ActionUpdate }

func (h libraryUpdateHandler) Handle(ctx context.Context, evt Event) error {
	var lib gateway.Library
	if err := evt.DecodeNew(&lib); err != nil {
		return err
	}
	h.ref.Evict(evt.TenantID, refdata.KindLibraries)
	return h.store.PatchLibrary(ctx, lib.ID, lib.Name, lib.Code)
}

// libraryDeleteHandler only evicts the lookup, matching location deletion.
type libraryDeleteHandler struct{ deps }

func (libraryDeleteHandler) EntityType() EntityType { return EntityLibrary }
func (libraryDeleteHandler) Action() Action         { return ActionDelete }

func (h libraryDeleteHandler) Handle(_ context.Context, evt Event) error {
	h.ref.Evict(evt.TenantID, refdata.KindLibraries)
	return nil
}
