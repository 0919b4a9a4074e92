package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/repository"
)

type ScheduleHandler struct {
	schedules *repository.ScheduleRepo
	tours     *repository.TourRepo
}

func NewScheduleHandler(schedules *repository.ScheduleRepo, tours *repository.TourRepo) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, tours: tours}
}

// POST /v1/tours/:tourId/schedules (shop access)
func (h *ScheduleHandler) Create(c *gin.Context) {
	var in struct {
		Date            string `json:"date" binding:"required"` // 2006-01-02
		Time            string `json:"time" binding:"required"` // 15:04
		MaxParticipants int    `json:"max_participants" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.ParseInLocation("2006-01-02", in.Date, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	if _, err := time.Parse("15:04", in.Time); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time must be HH:MM"})
		return
	}
	if in.MaxParticipants <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_participants must be positive"})
		return
	}
	tour, err := h.tours.TourByID(c.Request.Context(), c.Param("tourId"))
	if err != nil {
		writeErr(c, err)
		return
	}
	s := &domain.Schedule{
		TourID:          tour.ID,
		Date:            date,
		Time:            in.Time,
		MaxParticipants: in.MaxParticipants,
	}
	if err := h.schedules.Create(c.Request.Context(), s); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// GET /v1/tours/:tourId/schedules (public)
func (h *ScheduleHandler) List(c *gin.Context) {
	out, err := h.schedules.ByTour(c.Request.Context(), c.Param("tourId"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
