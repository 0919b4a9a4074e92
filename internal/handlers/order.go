package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/service"
	"github.com/eaarma/tour-site-sub000/pkg/auth"
)

type OrderHandler struct {
	reservations *service.ReservationSvc
	settlement   *service.SettlementSvc
}

func NewOrderHandler(reservations *service.ReservationSvc, settlement *service.SettlementSvc) *OrderHandler {
	return &OrderHandler{reservations: reservations, settlement: settlement}
}

// loadAuthorized fetches the order and enforces access: the reservation
// token admits guests, otherwise the caller must own the order or be an
// admin. Managers get no blanket access here; their order operations live
// on the staff routes behind the shop-membership check.
func (h *OrderHandler) loadAuthorized(c *gin.Context) (*domain.Order, bool) {
	o, err := h.reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return nil, false
	}
	if tok := c.Query("token"); tok != "" && tok == o.ReservationToken {
		return o, true
	}
	roleV, _ := c.Get("role")
	role, _ := roleV.(string)
	if role == auth.RoleAdmin {
		return o, true
	}
	subV, _ := c.Get("sub")
	sub, _ := subV.(string)
	if sub != "" && o.UserID != nil && *o.UserID == sub {
		return o, true
	}
	c.AbortWithStatus(http.StatusForbidden)
	return nil, false
}

// GET /v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	o, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o)
}

// POST /v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	if _, ok := h.loadAuthorized(c); !ok {
		return
	}
	o, err := h.reservations.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// POST /v1/orders/:id/intent
func (h *OrderHandler) CreateIntent(c *gin.Context) {
	if _, ok := h.loadAuthorized(c); !ok {
		return
	}
	secret, err := h.settlement.CreateOrRetrieveIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_secret": secret})
}
