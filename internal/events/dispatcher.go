package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/folio-org/mod-rtac-cache-sub000/pkg/errors"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/logger"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/metrics"
)

type routeKey struct {
	entity EntityType
	action Action
}

// expectedRoutes is the closed set of combinations the dispatcher must serve.
// NewDispatcher rejects a handler set that leaves any of them uncovered, so a
// wiring defect surfaces at startup rather than at first dispatch.
var expectedRoutes = []routeKey{
	{EntityHolding, ActionCreate},
	{EntityHolding, ActionUpdate},
	{EntityHolding, ActionDelete},
	{EntityItem, ActionCreate},
	{EntityItem, ActionUpdate},
	{EntityItem, ActionDelete},
	{EntityPiece, ActionCreate},
	{EntityPiece, ActionUpdate},
	{EntityPiece, ActionDelete},
	{EntityInstance, ActionUpdate},
	{EntityLocation, ActionUpdate},
	{EntityLocation, ActionDelete},
	{EntityLibrary, ActionUpdate},
	{EntityLibrary, ActionDelete},
	{EntityBoundWith, ActionCreate},
	{EntityBoundWith, ActionDelete},
	{EntityLoan, ActionCreate},
	{EntityLoan, ActionUpdate},
	{EntityRequest, ActionCreate},
	{EntityRequest, ActionUpdate},
}

// Dispatcher routes events to handlers through a static map built once at
// construction.
type Dispatcher struct {
	handlers map[routeKey]Handler
	log      *zap.Logger
}

// NewDispatcher builds the routing table. Duplicate registrations and missing
// expected routes are construction errors.
func NewDispatcher(handlers ...Handler) (*Dispatcher, error) {
	table := make(map[routeKey]Handler, len(handlers))
	for _, h := range handlers {
		key := routeKey{h.EntityType(), h.Action()}
		if _, exists := table[key]; exists {
			return nil, fmt.Errorf("events: duplicate handler for %s %s", key.entity, key.action)
		}
		table[key] = h
	}

	for _, key := range expectedRoutes {
		if _, ok := table[key]; !ok {
			return nil, fmt.Errorf("events: no handler registered for %s %s", key.entity, key.action)
		}
	}

	return &Dispatcher{
		handlers: table,
		log:      logger.WithModule("events"),
	}, nil
}

// Dispatch routes one event to its handler. An unmatched combination is a
// fatal configuration error, not a data condition.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) error {
	handler, ok := d.handlers[routeKey{evt.EntityType, evt.Action}]
	if !ok {
		metrics.EventsProcessed.WithLabelValues(string(evt.EntityType), string(evt.Action), "error").Inc()
		return apperrors.ErrUnroutableEvent.WithInternal(
			fmt.Errorf("events: no handler for %s %s", evt.EntityType, evt.Action))
	}

	if err := handler.Handle(ctx, evt); err != nil {
		metrics.EventsProcessed.WithLabelValues(string(evt.EntityType), string(evt.Action), "error").Inc()
		return err
	}

	metrics.EventsProcessed.WithLabelValues(string(evt.EntityType), string(evt.Action), "applied").Inc()
	d.log.Debug("event reconciled",
		zap.String("entity", string(evt.EntityType)),
		zap.String("action", string(evt.Action)),
		zap.String("tenant", evt.TenantID),
	)
	return nil
}
