package handlers

import (
	"net/http"
	"time"

	"commonroom/config"
	"commonroom/models"
	"commonroom/services/booking"

	"github.com/gin-gonic/gin"
)

// RoomsHandler serves the room catalog and day availability summaries.
type RoomsHandler struct {
	Catalog      config.RoomCatalog
	Availability booking.AvailabilityService
	Location     *time.Location
}

func NewRoomsHandler(catalog config.RoomCatalog, availability booking.AvailabilityService, loc *time.Location) *RoomsHandler {
	return &RoomsHandler{Catalog: catalog, Availability: availability, Location: loc}
}

// List returns the room catalog with display rates per token.
func (h *RoomsHandler) List(c *gin.Context) {
	type roomView struct {
		Slug     string            `json:"slug"`
		Name     string            `json:"name"`
		Bookable bool              `json:"bookable"`
		Rates    map[string]string `json:"rates"`
	}
	var out []roomView
	for _, room := range h.Catalog.Rooms() {
		view := roomView{
			Slug:     room.Slug,
			Name:     room.Name,
			Bookable: room.Bookable(),
			Rates:    make(map[string]string),
		}
		for _, tok := range h.Catalog.Tokens() {
			if rate := room.RateFor(tok.Symbol); rate != nil {
				view.Rates[tok.Symbol] = models.DisplayAmount(rate, tok.Decimals) + " " + tok.Symbol + "/h"
			}
		}
		out = append(out, view)
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// Day returns the availability summary for one room and day.
func (h *RoomsHandler) Day(c *gin.Context) {
	room, err := h.Catalog.BySlug(c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	day, err := time.ParseInLocation("2006-01-02", c.Query("date"), h.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	reservations, err := h.Availability.ReservationsOn(c.Request.Context(), room, day)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room":         room.Slug,
		"date":         c.Query("date"),
		"summary":      h.Availability.DaySummary(reservations),
		"reservations": reservations,
	})
}
