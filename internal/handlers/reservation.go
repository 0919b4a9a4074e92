package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaarma/tour-site-sub000/internal/service"
)

type ReservationHandler struct {
	svc *service.ReservationSvc
}

func NewReservationHandler(svc *service.ReservationSvc) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// POST /v1/reservations (guest checkout allowed)
func (h *ReservationHandler) Create(c *gin.Context) {
	var in struct {
		Items []struct {
			ScheduleID   string `json:"schedule_id" binding:"required"`
			Participants int    `json:"participants" binding:"required"`
		} `json:"items" binding:"required"`
		Name          string `json:"name" binding:"required"`
		Email         string `json:"email" binding:"required,email"`
		Phone         string `json:"phone"`
		Nationality   string `json:"nationality"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *string
	if sub, ok := c.Get("sub"); ok { // set by OptionalAuth
		if s, ok := sub.(string); ok && s != "" {
			userID = &s
		}
	}

	input := service.CreateReservationInput{
		UserID: userID,
		Contact: service.ContactInput{
			Name:        in.Name,
			Email:       in.Email,
			Phone:       in.Phone,
			Nationality: in.Nationality,
		},
		PaymentMethod: in.PaymentMethod,
	}
	for _, it := range in.Items {
		input.Items = append(input.Items, service.ReservationItemInput{
			ScheduleID:   it.ScheduleID,
			Participants: it.Participants,
		})
	}

	o, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// GET /v1/orders?user_id=me
func (h *ReservationHandler) ListMine(c *gin.Context) {
	sub, _ := c.Get("sub")
	userID, _ := sub.(string)
	orders, err := h.svc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}
