package handlers

import (
	"github.com/gin-gonic/gin"

	"paydocs/internal/domain/expiration"
)

// ExpirationHandler triggers the expiration jobs outside the worker schedule.
type ExpirationHandler struct {
	*BaseHandler
	scheduler *expiration.Scheduler
}

// NewExpirationHandler creates an expiration handler.
func NewExpirationHandler(base *BaseHandler, scheduler *expiration.Scheduler) *ExpirationHandler {
	return &ExpirationHandler{BaseHandler: base, scheduler: scheduler}
}

// Run handles POST /admin/expiration/run.
func (h *ExpirationHandler) Run(c *gin.Context) {
	if err := h.scheduler.RunOnce(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "expiration run completed")
}
