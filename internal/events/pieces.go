package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/mapper"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
)

// pieceCreateHandler inserts a PIECE row derived from the piece and the cached
// parent HOLDING context.
type pieceCreateHandler struct{ deps }

func (pieceCreateHandler) EntityType() EntityType { return EntityPiece }
func (pieceCreateHandler) Action() Action         { return ActionCreate }

func (h pieceCreateHandler) Handle(ctx context.Context, evt Event) error {
	var piece gateway.Piece
	if err := evt.DecodeNew(&piece); err != nil {
		return err
	}

	parent, err := h.store.FindHolding(ctx, piece.HoldingID)
	if err != nil {
		return err
	}
	if parent == nil {
		h.skip(evt, "parent holding not cached", zap.String("holdings_id", piece.HoldingID))
		return nil
	}

	return h.store.Upsert(ctx, mapper.FromPieceWithParent(*parent, piece))
}

// pieceUpdateHandler remaps the existing PIECE row in place under the same key.
type pieceUpdateHandler struct{ deps }

func (pieceUpdateHandler) EntityType() EntityType { return EntityPiece }
func (pieceUpdateHandler) Action() Action         { return ActionUpdate }

func (h pieceUpdateHandler) Handle(ctx context.Context, evt Event) error {
	var piece gateway.Piece
	if err := evt.DecodeNew(&piece); err != nil {
		return err
	}

	row, err := h.store.FindPiece(ctx, piece.ID)
	if err != nil {
		return err
	}
	if row == nil {
		h.skip(evt, "piece not cached", zap.String("piece_id", piece.ID))
		return nil
	}

	return h.store.Upsert(ctx, mapper.RemapPiece(*row, piece))
}

// pieceDeleteHandler unconditionally deletes by piece id.
type pieceDeleteHandler struct{ deps }

func (pieceDeleteHandler) EntityType() EntityType { return EntityPiece }
func (pieceDeleteHandler) Action() Action         { return ActionDelete }

func (h pieceDeleteHandler) Handle(ctx context.Context, evt Event) error {
	var piece gateway.Piece
	if err := evt.DecodeDeleted(&piece); err != nil {
		return err
	}
	return h.store.DeleteByRecordID(ctx, models.RecordTypePiece, piece.ID)
}
