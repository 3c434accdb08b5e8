package events

import (
	"errors"

	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/refdata"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/logger"
)

// deps bundles the collaborators shared by every handler.
type deps struct {
	store *cache.Store
	ref   *refdata.Lookup
	log   *zap.Logger
}

// skip logs a benign no-op caused by a missing prerequisite record.
func (d deps) skip(evt Event, reason string, fields ...zap.Field) {
	fields = append(fields,
		zap.String("entity", string(evt.EntityType)),
		zap.String("action", string(evt.Action)),
		zap.String("reason", reason),
	)
	d.log.Debug("event skipped", fields...)
}

// DefaultHandlers returns the full handler set covering every expected route.
func DefaultHandlers(store *cache.Store, ref *refdata.Lookup) ([]Handler, error) {
	if store == nil {
		return nil, errors.New("events: cache store is required")
	}
	if ref == nil {
		return nil, errors.New("events: reference lookup is required")
	}

	d := deps{store: store, ref: ref, log: logger.WithModule("events")}

	return []Handler{
		holdingCreateHandler{d},
		holdingUpdateHandler{d},
		holdingDeleteHandler{d},
		itemCreateHandler{d},
		itemUpdateHandler{d},
		itemDeleteHandler{d},
		pieceCreateHandler{d},
		pieceUpdateHandler{d},
		pieceDeleteHandler{d},
		instanceUpdateHandler{d},
		locationUpdateHandler{d},
		locationDeleteHandler{d},
		libraryUpdateHandler{d},
		libraryDeleteHandler{d},
		boundWithCreateHandler{d},
		boundWithDeleteHandler{d},
		loanHandler{deps: d, action: ActionCreate},
		loanHandler{deps: d, action: ActionUpdate},
		requestCreateHandler{d},
		requestUpdateHandler{d},
	}, nil
}
