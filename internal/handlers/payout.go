package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaarma/tour-site-sub000/internal/service"
)

type PayoutHandler struct {
	svc *service.PayoutSvc
}

func NewPayoutHandler(svc *service.PayoutSvc) *PayoutHandler {
	return &PayoutHandler{svc: svc}
}

// POST /v1/shops/:shopId/payouts (shop access)
//
// Collects lines for any freshly succeeded payments first, so a payout
// request right after a sale still picks it up.
func (h *PayoutHandler) Settle(c *gin.Context) {
	if _, err := h.svc.CollectLines(c.Request.Context(), 100); err != nil {
		writeErr(c, err)
		return
	}
	p, err := h.svc.SettleShop(c.Request.Context(), c.Param("shopId"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
