package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaarma/tour-site-sub000/internal/service"
)

// ManagerHandler covers the staff-side order operations.
type ManagerHandler struct {
	reservations *service.ReservationSvc
}

func NewManagerHandler(reservations *service.ReservationSvc) *ManagerHandler {
	return &ManagerHandler{reservations: reservations}
}

// POST /v1/orders/:id/refund (MANAGER/ADMIN)
func (h *ManagerHandler) Refund(c *gin.Context) {
	o, err := h.reservations.Refund(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// POST /v1/orders/:id/items/:itemId/cancel (shop access)
func (h *ManagerHandler) CancelItem(c *gin.Context) {
	it, err := h.reservations.CancelItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// POST /v1/orders/:id/items/:itemId/assign (shop access)
func (h *ManagerHandler) AssignItem(c *gin.Context) {
	var in struct {
		ManagerID string `json:"manager_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	it, err := h.reservations.AssignManager(c.Request.Context(), c.Param("id"), c.Param("itemId"), in.ManagerID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}
