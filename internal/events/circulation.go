package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
)

const (
	loanStatusOpen   = "Open"
	loanStatusClosed = "Closed"
)

var requestOpenStatuses = map[string]struct{}{
	"Open - Not yet filled":    {},
	"Open - Awaiting pickup":   {},
	"Open - In transit":        {},
	"Open - Awaiting delivery": {},
}

var requestClosedStatuses = map[string]struct{}{
	"Closed - Filled":         {},
	"Closed - Cancelled":      {},
	"Closed - Unfilled":       {},
	"Closed - Pickup expired": {},
}

// loanHandler maintains the due date on the primary ITEM row. Creation and
// update share the same semantics, so one type covers both routes.
type loanHandler struct {
	deps
	action Action
}

func (loanHandler) EntityType() EntityType { return EntityLoan }
func (l loanHandler) Action() Action       { return l.action }

func (l loanHandler) Handle(ctx context.Context, evt Event) error {
	var loan gateway.Loan
	if err := evt.DecodeNew(&loan); err != nil {
		return err
	}

	row, err := l.store.FindItem(ctx, loan.ItemID)
	if err != nil {
		return err
	}
	if row == nil {
		l.skip(evt, "item not cached", zap.String("item_id", loan.ItemID))
		return nil
	}

	switch loan.Status.Name {
	case loanStatusOpen:
		if loan.DueDate == nil {
			l.skip(evt, "open loan without due date", zap.String("item_id", loan.ItemID))
			return nil
		}
		row.DueDate = loan.DueDate
	case loanStatusClosed:
		// Cleared even when the open loan was never observed.
		row.DueDate = nil
	default:
		l.skip(evt, "unrecognized loan status", zap.String("status", loan.Status.Name))
		return nil
	}

	return l.store.Upsert(ctx, *row)
}

// requestCreateHandler increments the hold count on the primary ITEM row when
// an open item-level request appears.
type requestCreateHandler struct{ deps }

func (requestCreateHandler) EntityType() EntityType { return EntityRequest }
func (requestCreateHandler) Action() Action         { return ActionCreate }

func (h requestCreateHandler) Handle(ctx context.Context, evt Event) error {
	var req gateway.Request
	if err := evt.DecodeNew(&req); err != nil {
		return err
	}

	if _, open := requestOpenStatuses[req.Status]; !open {
		h.skip(evt, "request not open", zap.String("status", req.Status))
		return nil
	}
	if req.ItemID == "" {
		h.skip(evt, "title-level request carries no item")
		return nil
	}

	row, err := h.store.FindItem(ctx, req.ItemID)
	if err != nil {
		return err
	}
	if row == nil {
		h.skip(evt, "item not cached", zap.String("item_id", req.ItemID))
		return nil
	}

	n := 1
	if row.TotalHoldRequests != nil {
		n = *row.TotalHoldRequests + 1
	}
	row.TotalHoldRequests = &n
	return h.store.Upsert(ctx, *row)
}

// requestUpdateHandler decrements the hold count only on the open-to-closed
// transition. Status churn within the open set, or a request reopening, leaves
// the count untouched.
type requestUpdateHandler struct{ deps }

func (requestUpdateHandler) EntityType() EntityType { return EntityRequest }
func (requestUpdateHandler) Action() Action         { return ActionUpdate }

func (h requestUpdateHandler) Handle(ctx context.Context, evt Event) error {
	var updated, old gateway.Request
	if err := evt.DecodeNew(&updated); err != nil {
		return err
	}
	if err := evt.DecodeOld(&old); err != nil {
		return err
	}

	_, wasOpen := requestOpenStatuses[old.Status]
	_, nowClosed := requestClosedStatuses[updated.Status]
	if !wasOpen || !nowClosed {
		h.skip(evt, "no open-to-closed transition",
			zap.String("old_status", old.Status), zap.String("new_status", updated.Status))
		return nil
	}

	itemID := updated.ItemID
	if itemID == "" {
		itemID = old.ItemID
	}
	if itemID == "" {
		h.skip(evt, "title-level request carries no item")
		return nil
	}

	row, err := h.store.FindItem(ctx, itemID)
	if err != nil {
		return err
	}
	if row == nil {
		h.skip(evt, "item not cached", zap.String("item_id", itemID))
		return nil
	}
	if row.TotalHoldRequests == nil {
		h.skip(evt, "item carries no hold count", zap.String("item_id", itemID))
		return nil
	}

	n := *row.TotalHoldRequests - 1
	if n < 0 {
		n = 0
	}
	row.TotalHoldRequests = &n
	return h.store.Upsert(ctx, *row)
}
