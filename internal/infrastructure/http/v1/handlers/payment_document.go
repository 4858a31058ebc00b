package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/infrastructure/http/v1/dto"
)

// PaymentDocumentHandler serves payment documents and their workflow.
type PaymentDocumentHandler struct {
	*BaseHandler
	docs *payment_document.Service
}

// NewPaymentDocumentHandler creates a payment document handler.
func NewPaymentDocumentHandler(base *BaseHandler, docs *payment_document.Service) *PaymentDocumentHandler {
	return &PaymentDocumentHandler{BaseHandler: base, docs: docs}
}

// List handles GET /payment-documents.
func (h *PaymentDocumentHandler) List(c *gin.Context) {
	var q dto.DocumentListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.docs.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Get handles GET /payment-documents/:id.
func (h *PaymentDocumentHandler) Get(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.GetByID)
}

// Create handles POST /payment-documents.
func (h *PaymentDocumentHandler) Create(c *gin.Context) {
	var req dto.PaymentDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc := req.ToDocument()
	if err := h.docs.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// Update handles PUT /payment-documents/:id. The body carries the version read.
func (h *PaymentDocumentHandler) Update(c *gin.Context) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Version < 1 {
		h.Error(c, apperror.NewValidation("version is required").WithDetail("field", "version"))
		return
	}

	ctx := c.Request.Context()
	existing, err := h.docs.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if existing.Version != req.Version {
		h.Error(c, apperror.NewConcurrentModification(payment_document.EntityName, docID.String()))
		return
	}

	doc := req.ApplyTo(existing)
	if err := h.docs.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}
	updated, err := h.docs.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}

// Delete handles DELETE /payment-documents/:id.
func (h *PaymentDocumentHandler) Delete(c *gin.Context) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Copy handles POST /payment-documents/:id/copy.
func (h *PaymentDocumentHandler) Copy(c *gin.Context) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CopyRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	dup, err := h.docs.Copy(c.Request.Context(), docID, req.Name)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dup)
}

// AttachMoveLines handles POST /payment-documents/:id/move-lines.
func (h *PaymentDocumentHandler) AttachMoveLines(c *gin.Context) {
	runWithIDs(h.BaseHandler, c, func(r dto.AttachMoveLinesRequest) []id.ID { return r.MoveLineIDs }, h.docs.AttachMoveLines)
}

// AddLine handles POST /payment-documents/:id/lines.
func (h *PaymentDocumentHandler) AddLine(c *gin.Context) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.DocumentLineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.docs.AddLine(c.Request.Context(), docID, req.ToLine())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// RemoveLines handles POST /payment-documents/:id/lines/remove.
func (h *PaymentDocumentHandler) RemoveLines(c *gin.Context) {
	runWithIDs(h.BaseHandler, c, func(r dto.RemoveLinesRequest) []id.ID { return r.LineIDs }, h.docs.RemoveLines)
}

// Moves handles GET /payment-documents/:id/moves.
func (h *PaymentDocumentHandler) Moves(c *gin.Context) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	moves, err := h.docs.Moves(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(moves))
}

// PreviewMove handles GET /payment-documents/:id/move-preview: the move
// confirming the document would book, without storing it.
func (h *PaymentDocumentHandler) PreviewMove(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.PrepareMove)
}

// Open handles POST /payment-documents/:id/open.
func (h *PaymentDocumentHandler) Open(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.Draft2Open)
}

// Advance handles POST /payment-documents/:id/advance.
func (h *PaymentDocumentHandler) Advance(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.Open2Advanced)
}

// AttachToOrder handles POST /payment-documents/:id/attach-order.
func (h *PaymentDocumentHandler) AttachToOrder(c *gin.Context) {
	var req dto.AttachOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	runTransition(h.BaseHandler, c, func(ctx context.Context, docID id.ID) (*payment_document.PaymentDocument, error) {
		return h.docs.AttachToOrder(ctx, docID, req.OrderID)
	})
}

// Paid handles POST /payment-documents/:id/paid.
func (h *PaymentDocumentHandler) Paid(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.ActionPaid)
}

// Unpaid handles POST /payment-documents/:id/unpaid.
func (h *PaymentDocumentHandler) Unpaid(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.ActionUnpaid)
}

// Cancel handles POST /payment-documents/:id/cancel.
func (h *PaymentDocumentHandler) Cancel(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.ActionCancel)
}

// PaidCancel handles POST /payment-documents/:id/paid-cancel.
func (h *PaymentDocumentHandler) PaidCancel(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.ActionPaidCancel)
}

// Draft handles POST /payment-documents/:id/draft.
func (h *PaymentDocumentHandler) Draft(c *gin.Context) {
	runTransition(h.BaseHandler, c, h.docs.Cancel2Draft)
}
