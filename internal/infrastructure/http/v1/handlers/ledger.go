package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"paydocs/internal/core/id"
	"paydocs/internal/domain/documentlink"
	"paydocs/internal/domain/ledger"
	"paydocs/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves moves, move lines, reconciliation and the links
// between the ledger and payment documents.
type LedgerHandler struct {
	*BaseHandler
	ledger *ledger.Service
	links  *documentlink.Service
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(base *BaseHandler, led *ledger.Service, links *documentlink.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, ledger: led, links: links}
}

// CreateMove handles POST /moves.
func (h *LedgerHandler) CreateMove(c *gin.Context) {
	var req dto.CreateMoveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	m := req.ToMove()
	if err := h.ledger.CreateMove(ctx, m); err != nil {
		h.Error(c, err)
		return
	}
	if req.Post {
		if err := h.ledger.Post(ctx, m.ID); err != nil {
			h.Error(c, err)
			return
		}
	}
	stored, err := h.ledger.Move(ctx, m.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, stored)
}

// ListMoves handles GET /moves.
func (h *LedgerHandler) ListMoves(c *gin.Context) {
	var q dto.MoveQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	moves, err := h.ledger.Moves(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(moves))
}

// GetMove handles GET /moves/:id.
func (h *LedgerHandler) GetMove(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.ledger.Move)
}

// PostMove handles POST /moves/:id/post.
func (h *LedgerHandler) PostMove(c *gin.Context) {
	h.moveAction(c, h.ledger.Post)
}

// CancelMove handles POST /moves/:id/cancel.
func (h *LedgerHandler) CancelMove(c *gin.Context) {
	h.moveAction(c, h.ledger.Cancel)
}

// DeleteMove handles DELETE /moves/:id.
func (h *LedgerHandler) DeleteMove(c *gin.Context) {
	moveID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.Delete(c.Request.Context(), moveID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// PaymentDocument handles GET /moves/:id/payment-document: the document
// whose confirmation generated the move.
func (h *LedgerHandler) PaymentDocument(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.links.DocumentForMove)
}

// Pending handles GET /moves/:id/pending: the receivable amount of an
// invoice not yet covered by payment documents.
func (h *LedgerHandler) Pending(c *gin.Context) {
	moveID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	amount, err := h.links.PendingOnReceivables(c.Request.Context(), moveID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.PendingResponse{MoveID: moveID.String(), Pending: amount})
}

// ListLines handles GET /move-lines.
func (h *LedgerHandler) ListLines(c *gin.Context) {
	var q dto.LineQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	lines, err := h.ledger.Lines(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(lines))
}

// GetLine handles GET /move-lines/:id.
func (h *LedgerHandler) GetLine(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.ledger.Line)
}

// DocumentLines handles GET /move-lines/:id/document-lines.
func (h *LedgerHandler) DocumentLines(c *gin.Context) {
	lineID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	lines, err := h.links.DocumentLinesForMoveLine(c.Request.Context(), lineID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(lines))
}

// Reconcile handles POST /move-lines/reconcile.
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reconcileID, err := h.ledger.Reconcile(c.Request.Context(), req.LineIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ReconcileResponse{ReconcileID: reconcileID.String()})
}

// Unreconcile handles POST /move-lines/unreconcile.
func (h *LedgerHandler) Unreconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.ledger.RemoveMoveReconcile(c.Request.Context(), req.LineIDs); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "reconciliation removed")
}

// ReconcileStatement handles POST /statements/reconcile.
func (h *LedgerHandler) ReconcileStatement(c *gin.Context) {
	var req dto.StatementReconciliationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	st, counterparts := req.ToDomain()
	move, err := h.links.ProcessStatementReconciliation(c.Request.Context(), st, counterparts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, move)
}

func (h *LedgerHandler) moveAction(c *gin.Context, fn func(ctx context.Context, moveID id.ID) error) {
	moveID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := fn(ctx, moveID); err != nil {
		h.Error(c, err)
		return
	}
	m, err := h.ledger.Move(ctx, moveID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}
