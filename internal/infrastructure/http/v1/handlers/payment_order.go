package handlers

import (
	"github.com/gin-gonic/gin"

	"paydocs/internal/core/id"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/infrastructure/http/v1/dto"
)

// PaymentOrderHandler serves payment orders and their workflow.
type PaymentOrderHandler struct {
	*BaseHandler
	orders *payment_order.Service
}

// NewPaymentOrderHandler creates a payment order handler.
func NewPaymentOrderHandler(base *BaseHandler, orders *payment_order.Service) *PaymentOrderHandler {
	return &PaymentOrderHandler{BaseHandler: base, orders: orders}
}

// List handles GET /payment-orders.
func (h *PaymentOrderHandler) List(c *gin.Context) {
	var q dto.OrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Get handles GET /payment-orders/:id.
func (h *PaymentOrderHandler) Get(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.orders.GetByID)
}

// Create handles POST /payment-orders. Move lines and documents named in
// the body are added to the new draft.
func (h *PaymentOrderHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	o := req.ToOrder()
	if err := h.orders.Create(ctx, o); err != nil {
		h.Error(c, err)
		return
	}

	out := o
	var err error
	if len(req.MoveLineIDs) > 0 {
		if out, err = h.orders.AddMoveLines(ctx, o.ID, req.MoveLineIDs); err != nil {
			h.Error(c, err)
			return
		}
	}
	if len(req.DocumentIDs) > 0 {
		if out, err = h.orders.AttachDocuments(ctx, o.ID, req.DocumentIDs); err != nil {
			h.Error(c, err)
			return
		}
	}
	h.Created(c, out)
}

// AddMoveLines handles POST /payment-orders/:id/move-lines.
func (h *PaymentOrderHandler) AddMoveLines(c *gin.Context) {
	runWithIDs(h.BaseHandler, c, func(r dto.AddMoveLinesRequest) []id.ID { return r.MoveLineIDs }, h.orders.AddMoveLines)
}

// AttachDocuments handles POST /payment-orders/:id/documents.
func (h *PaymentOrderHandler) AttachDocuments(c *gin.Context) {
	runWithIDs(h.BaseHandler, c, func(r dto.AttachDocumentsRequest) []id.ID { return r.DocumentIDs }, h.orders.AttachDocuments)
}

// Moves handles GET /payment-orders/:id/moves.
func (h *PaymentOrderHandler) Moves(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	moves, err := h.orders.Moves(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(moves))
}

// Open handles POST /payment-orders/:id/open.
func (h *PaymentOrderHandler) Open(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.orders.Draft2Open)
}

// Generate handles POST /payment-orders/:id/generate.
func (h *PaymentOrderHandler) Generate(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.orders.Generate)
}

// Upload handles POST /payment-orders/:id/upload.
func (h *PaymentOrderHandler) Upload(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.orders.Generated2Uploaded)
}

// Done handles POST /payment-orders/:id/done.
func (h *PaymentOrderHandler) Done(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.orders.ActionDone)
}

// Cancel handles POST /payment-orders/:id/cancel.
func (h *PaymentOrderHandler) Cancel(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.orders.Cancel)
}

// Draft handles POST /payment-orders/:id/draft.
func (h *PaymentOrderHandler) Draft(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.orders.Cancel2Draft)
}

// ReconcileBankLine handles POST /payment-orders/:id/bank-lines/:lineId/reconcile.
func (h *PaymentOrderHandler) ReconcileBankLine(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParamID(c, "lineId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.orders.ReconcileBankLine(ctx, orderID, lineID); err != nil {
		h.Error(c, err)
		return
	}
	o, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}
