package handlers

import (
	"net/http"

	"commonroom/middleware"
	"commonroom/models"
	"commonroom/services/booking"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the booking conversation over HTTP. Each endpoint
// is one FSM transition; the chat gateway renders the returned state.
type BookingHandler struct {
	Flow booking.FlowService
}

func NewBookingHandler(flow booking.FlowService) *BookingHandler {
	return &BookingHandler{Flow: flow}
}

// Start begins a booking conversation for a room.
func (h *BookingHandler) Start(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	var input struct {
		Room string `json:"room" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	state, err := h.Flow.StartFlow(c.Request.Context(), guildID, userID, input.Room)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ChooseDate continues the conversation with the selected day.
func (h *BookingHandler) ChooseDate(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	var input struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	state, err := h.Flow.ChooseDate(c.Request.Context(), guildID, userID, input.Date)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ChooseTime continues the conversation with the selected start time.
func (h *BookingHandler) ChooseTime(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	var input struct {
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	state, err := h.Flow.ChooseTime(c.Request.Context(), guildID, userID, input.Hour, input.Minute)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ChooseDuration continues the conversation with the selected duration.
func (h *BookingHandler) ChooseDuration(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	var input struct {
		Minutes int `json:"minutes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	state, err := h.Flow.ChooseDuration(c.Request.Context(), guildID, userID, input.Minutes)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SetName records the event name (empty accepts the default) and returns
// the confirmation screen.
func (h *BookingHandler) SetName(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	var input struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	view, err := h.Flow.SetName(c.Request.Context(), guildID, userID, input.Name)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Confirmation re-renders the confirmation screen with fresh prices and
// balances.
func (h *BookingHandler) Confirmation(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	view, err := h.Flow.Confirmation(c.Request.Context(), guildID, userID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Back rewinds the conversation to an earlier step.
func (h *BookingHandler) Back(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	var input struct {
		Step string `json:"step" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	state, err := h.Flow.Back(c.Request.Context(), guildID, userID, models.Step(input.Step))
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Confirm settles the payment and commits the reservation.
func (h *BookingHandler) Confirm(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	var input struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	result, err := h.Flow.Confirm(c.Request.Context(), guildID, userID, input.Token)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Abort ends the conversation without booking.
func (h *BookingHandler) Abort(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	if err := h.Flow.Abort(c.Request.Context(), guildID, userID); err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "aborted"})
}
