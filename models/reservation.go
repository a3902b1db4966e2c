package models

import (
	"math/big"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect. Touching
// intervals (iv.End == other.Start) do not overlap, so back-to-back
// bookings are legal.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Reservation is a calendar entry for a booked room. The calendar service
// is the system of record; there is no separate reservation database.
type Reservation struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeZone    string    `json:"timeZone"`
}

// Interval returns the reservation's occupied range.
func (r *Reservation) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}

// ReservationDraft carries the fields for a reservation about to be created.
type ReservationDraft struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// CancellationCandidate is a reservation owned by the cancelling user,
// decorated with its room and the price recomputed from the room's current
// rate. Built transiently per cancellation request, never stored.
type CancellationCandidate struct {
	Reservation Reservation `json:"reservation"`
	RoomSlug    string      `json:"roomSlug"`
	RoomName    string      `json:"roomName"`
	Token       string      `json:"token"`
	PriceAmount *big.Int    `json:"-"`
	PriceText   string      `json:"price"`
}
