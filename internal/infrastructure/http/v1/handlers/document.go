package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"paydocs/internal/core/id"
)

// runTransition applies fn to the ":id" document and renders the result.
func runTransition[T any](h *BaseHandler, c *gin.Context, fn func(ctx context.Context, docID id.ID) (T, error)) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	out, err := fn(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// runWithIDs applies fn to the ":id" document and a list of IDs from the body.
func runWithIDs[T any, Req any](h *BaseHandler, c *gin.Context, ids func(Req) []id.ID, fn func(ctx context.Context, docID id.ID, ids []id.ID) (T, error)) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}
	out, err := fn(c.Request.Context(), docID, ids(req))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}
