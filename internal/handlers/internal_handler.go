package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brigada-mx/backend-sub000/internal/services"
)

// InternalHandler serves the routes only sibling processes reach.
type InternalHandler struct {
	expander *services.ScheduleExpander
}

func NewInternalHandler(expander *services.ScheduleExpander) *InternalHandler {
	return &InternalHandler{expander: expander}
}

// DebugRaise fails on purpose so the error pipeline and alerting can be
// verified end to end in any environment.
func (h *InternalHandler) DebugRaise(c *gin.Context) {
	fail(c, errors.New("intentional debug error"))
}

// ExpandSchedules triggers an immediate expansion outside the ticker.
func (h *InternalHandler) ExpandSchedules(c *gin.Context) {
	if err := h.expander.ExpandAll(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "schedules expanded"})
}
