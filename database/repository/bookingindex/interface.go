package bookingindex

import (
	"context"
	"errors"

	"commonroom/models"
)

// ErrNotFound means no index entry exists for the reservation.
var ErrNotFound = errors.New("booking index entry not found")

// Repository is the structured ownership side-index, populated at commit
// time. The human-readable marker in the reservation description stays for
// display; this index is what cancellation queries.
type Repository interface {
	Insert(ctx context.Context, entry models.BookingIndexEntry) error
	GetByReservationID(ctx context.Context, reservationID string) (*models.BookingIndexEntry, error)
	ListByOwner(ctx context.Context, guildID, ownerID string) ([]models.BookingIndexEntry, error)

	// MarkRefunded flips the refunded flag from false to true and reports
	// whether this call won the flip. Losing means the refund was already
	// issued (or is being issued) and must not be repeated.
	MarkRefunded(ctx context.Context, reservationID string) (bool, error)

	// UnmarkRefunded reverts a failed refund attempt so the user can retry.
	UnmarkRefunded(ctx context.Context, reservationID string) error

	// SetRefundRef records the credit transaction reference after a
	// successful refund.
	SetRefundRef(ctx context.Context, reservationID, refundRef string) error
}
