package handlers

import (
	"github.com/gin-gonic/gin"

	"paydocs/internal/domain/linecreate"
	"paydocs/internal/infrastructure/http/v1/dto"
)

// LineCandidatesHandler offers move lines for payment documents and orders.
type LineCandidatesHandler struct {
	*BaseHandler
	lines *linecreate.Service
}

// NewLineCandidatesHandler creates a line candidates handler.
func NewLineCandidatesHandler(base *BaseHandler, lines *linecreate.Service) *LineCandidatesHandler {
	return &LineCandidatesHandler{BaseHandler: base, lines: lines}
}

// List handles GET /move-lines/candidates.
func (h *LineCandidatesHandler) List(c *gin.Context) {
	var q dto.CandidateQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	lines, err := h.lines.Candidates(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(lines))
}
