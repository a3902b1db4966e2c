package calendar

import (
	"context"
	"fmt"
	"time"

	"commonroom/models"
)

// ConflictError is returned by CreateReservation when the calendar rejects
// a write because the interval is already taken.
type ConflictError struct {
	Conflicting models.Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("interval already reserved by %q (%s - %s)",
		e.Conflicting.Summary,
		e.Conflicting.Start.Format(time.RFC3339),
		e.Conflicting.End.Format(time.RFC3339))
}

// Service is the calendar collaborator. The calendar is the system of
// record for reservations; transport and credential handling live behind
// this interface.
type Service interface {
	ListReservations(ctx context.Context, calendarID string, from, to time.Time) ([]models.Reservation, error)
	CreateReservation(ctx context.Context, calendarID string, draft models.ReservationDraft) (*models.Reservation, error)
	DeleteReservation(ctx context.Context, calendarID string, reservationID string) error
}
