package handlers

import (
	"net/http"

	"commonroom/middleware"
	"commonroom/services/cancellation"

	"github.com/gin-gonic/gin"
)

// CancellationHandler exposes the cancellation pipeline: list owned
// reservations, select one, then explicitly confirm.
type CancellationHandler struct {
	Svc cancellation.Service
}

func NewCancellationHandler(svc cancellation.Service) *CancellationHandler {
	return &CancellationHandler{Svc: svc}
}

// List returns the caller's cancellable reservations across all rooms.
func (h *CancellationHandler) List(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	candidates, err := h.Svc.ListCandidates(c.Request.Context(), guildID, userID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// Select stages a reservation for cancellation and returns the refund
// preview. Nothing is charged back or deleted yet.
func (h *CancellationHandler) Select(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	var input struct {
		ReservationID string `json:"reservationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	preview, err := h.Svc.Select(c.Request.Context(), guildID, userID, input.ReservationID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Confirm settles the staged cancellation: refund, then delete.
func (h *CancellationHandler) Confirm(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	result, err := h.Svc.Confirm(c.Request.Context(), guildID, userID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Dismiss abandons the staged cancellation.
func (h *CancellationHandler) Dismiss(c *gin.Context) {
	guildID, userID := middleware.Identity(c)
	if err := h.Svc.Dismiss(c.Request.Context(), guildID, userID); err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "dismissed"})
}
