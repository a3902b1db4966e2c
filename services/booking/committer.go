package booking

import (
	"context"
	"errors"
	"time"

	"commonroom/database/repository/bookingindex"
	"commonroom/models"
	"commonroom/services/calendar"

	"go.uber.org/zap"
)

// ReservationCommitter re-validates conflicts and writes the reservation.
type ReservationCommitter interface {
	Commit(ctx context.Context, room *models.Resource, session *models.BookingSession, receipt *models.PaymentReceipt, priceText string) (*models.Reservation, error)
}

// DefaultReservationCommitter performs a fresh conflict check immediately
// before the calendar write, then records the ownership side-index entry.
type DefaultReservationCommitter struct {
	Calendar     calendar.Service
	Availability AvailabilityService
	Index        bookingindex.Repository
	Logger       *zap.Logger
}

// Commit writes the paid booking to the calendar. The second conflict
// check narrows, but cannot eliminate, the window between the first
// availability check and the write; a conflict found here means the
// payment is already captured, so it is returned as a distinguished
// CommitConflictError and never silently retried.
func (c *DefaultReservationCommitter) Commit(ctx context.Context, room *models.Resource, session *models.BookingSession, receipt *models.PaymentReceipt, priceText string) (*models.Reservation, error) {
	candidate := models.Interval{Start: session.StartTime, End: session.EndTime}

	existing, err := c.Availability.ReservationsOn(ctx, room, session.StartTime)
	if err != nil {
		c.Logger.Error("pre-commit availability check failed",
			zap.String("room", room.Slug),
			zap.String("paymentRef", receipt.TxRef),
			zap.Error(err))
		return nil, &CommitConflictError{Receipt: receipt}
	}
	if conflict := FindConflict(candidate, existing); conflict != nil {
		c.logPaidNotBooked(room, receipt, conflict)
		return nil, &CommitConflictError{Conflicting: *conflict, Receipt: receipt}
	}

	draft := models.ReservationDraft{
		Summary:     session.Name,
		Description: BuildDescription(session.GuildID, session.UserID, receipt.TxRef, priceText),
		Start:       session.StartTime,
		End:         session.EndTime,
		TimeZone:    session.StartTime.Location().String(),
	}
	created, err := c.Calendar.CreateReservation(ctx, room.CalendarID, draft)
	if err != nil {
		var conflictErr *calendar.ConflictError
		if errors.As(err, &conflictErr) {
			// The calendar's own write-time conflict is authoritative.
			c.logPaidNotBooked(room, receipt, &conflictErr.Conflicting)
			return nil, &CommitConflictError{Conflicting: conflictErr.Conflicting, Receipt: receipt}
		}
		c.Logger.Error("reservation write failed after payment",
			zap.String("room", room.Slug),
			zap.String("paymentRef", receipt.TxRef),
			zap.String("amount", receipt.Amount.String()),
			zap.Error(err))
		return nil, &CommitConflictError{Receipt: receipt}
	}

	entry := models.BookingIndexEntry{
		ReservationID: created.ID,
		CalendarID:    room.CalendarID,
		RoomSlug:      room.Slug,
		GuildID:       session.GuildID,
		OwnerID:       session.UserID,
		Token:         receipt.Token,
		PriceAmount:   receipt.Amount.String(),
		PaymentRef:    receipt.TxRef,
		CreatedAt:     time.Now(),
	}
	if err := c.Index.Insert(ctx, entry); err != nil {
		// The reservation exists and the marker still attributes it; an
		// index miss degrades cancellation to marker parsing. Log for
		// reconciliation rather than failing a paid booking.
		c.Logger.Error("booking index write failed",
			zap.String("reservationID", created.ID),
			zap.String("paymentRef", receipt.TxRef),
			zap.Error(err))
	}

	c.Logger.Info("reservation committed",
		zap.String("room", room.Slug),
		zap.String("reservationID", created.ID),
		zap.String("user", session.UserID),
		zap.String("paymentRef", receipt.TxRef))
	return created, nil
}

func (c *DefaultReservationCommitter) logPaidNotBooked(room *models.Resource, receipt *models.PaymentReceipt, conflict *models.Reservation) {
	fields := []zap.Field{
		zap.String("room", room.Slug),
		zap.String("user", receipt.UserID),
		zap.String("token", receipt.Token),
		zap.String("amount", receipt.Amount.String()),
		zap.String("paymentRef", receipt.TxRef),
	}
	if conflict != nil {
		fields = append(fields, zap.String("conflictingReservation", conflict.ID))
	}
	c.Logger.Error("payment captured but booking lost the race", fields...)
}
