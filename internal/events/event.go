// Package events routes upstream change events to per-(entity, action)
// handlers that mutate the availability read model incrementally. Handlers
// tolerate out-of-order delivery across independent streams: a missing
// prerequisite record is a logged no-op, never an error.
package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Action is the change verb of an event.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// EntityType is the upstream entity category of an event.
type EntityType string

const (
	EntityHolding   EntityType = "HOLDING"
	EntityItem      EntityType = "ITEM"
	EntityPiece     EntityType = "PIECE"
	EntityInstance  EntityType = "INSTANCE"
	EntityLocation  EntityType = "LOCATION"
	EntityLibrary   EntityType = "LIBRARY"
	EntityBoundWith EntityType = "BOUND_WITH"
	EntityLoan      EntityType = "LOAN"
	EntityRequest   EntityType = "REQUEST"
)

// Event is one change notification from an upstream record system. Old and
// New carry the entity payload before and after the change; which of the two
// is present depends on the action.
type Event struct {
	EntityType EntityType      `json:"entityType"`
	Action     Action          `json:"action"`
	TenantID   string          `json:"tenantId"`
	Old        json.RawMessage `json:"old,omitempty"`
	New        json.RawMessage `json:"new,omitempty"`
}

// DecodeNew unmarshals the post-change payload into out.
func (e Event) DecodeNew(out any) error {
	if len(e.New) == 0 {
		return fmt.Errorf("events: %s %s: missing new payload", e.EntityType, e.Action)
	}
	if err := json.Unmarshal(e.New, out); err != nil {
		return fmt.Errorf("events: %s %s: decode new payload: %w", e.EntityType, e.Action, err)
	}
	return nil
}

// DecodeOld unmarshals the pre-change payload into out.
func (e Event) DecodeOld(out any) error {
	if len(e.Old) == 0 {
		return fmt.Errorf("events: %s %s: missing old payload", e.EntityType, e.Action)
	}
	if err := json.Unmarshal(e.Old, out); err != nil {
		return fmt.Errorf("events: %s %s: decode old payload: %w", e.EntityType, e.Action, err)
	}
	return nil
}

// DecodeDeleted unmarshals the payload of a delete event, preferring the
// pre-change snapshot when the producer supplied one.
func (e Event) DecodeDeleted(out any) error {
	if len(e.Old) > 0 {
		return e.DecodeOld(out)
	}
	return e.DecodeNew(out)
}

// Handler reconciles one (entity, action) combination against the cache.
type Handler interface {
	EntityType() EntityType
	Action() Action
	Handle(ctx context.Context, evt Event) error
}
