package booking

import (
	"fmt"
	"math/big"

	"commonroom/models"
)

// FlowError is a user-visible, non-fatal booking flow failure.
type FlowError struct {
	Code    string
	Message string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrSessionExpired means a continuation input arrived with no matching
// session; the flow must restart from date selection.
var ErrSessionExpired = &FlowError{
	Code:    "sessionExpired",
	Message: "booking session not found or expired, please start again",
}

// ErrResourceNotBookable means the room has no calendar binding.
var ErrResourceNotBookable = &FlowError{
	Code:    "resourceNotBookable",
	Message: "this room has no calendar and cannot be booked",
}

// ErrIntervalHeld means another booker holds the candidate interval right
// now. No funds have moved; the user can pick another slot or retry.
var ErrIntervalHeld = &FlowError{
	Code:    "intervalHeld",
	Message: "someone else is booking this slot right now, please try again shortly",
}

// InsufficientBalanceError carries both sides of the failed balance check
// for display. No funds were moved.
type InsufficientBalanceError struct {
	Token     string
	Required  *big.Int
	Available *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: required %s, available %s",
		e.Token, e.Required.String(), e.Available.String())
}

// PaymentFailedError means the ledger debit call itself failed. No funds
// were moved and no reservation was created.
type PaymentFailedError struct {
	Reason string
	Err    error
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment submission failed: %s", e.Reason)
}

func (e *PaymentFailedError) Unwrap() error {
	return e.Err
}

// ConflictFoundError is the pre-payment conflict: the candidate interval
// overlaps an existing reservation. Nothing was charged.
type ConflictFoundError struct {
	Conflicting models.Reservation
}

func (e *ConflictFoundError) Error() string {
	return fmt.Sprintf("interval conflicts with %q (%s - %s)",
		e.Conflicting.Summary,
		e.Conflicting.Start.Format("15:04"),
		e.Conflicting.End.Format("15:04"))
}

// CommitConflictError is the "paid but not booked" case: the debit went
// through but the reservation write lost the race. It must be surfaced to
// the user and reconciled, never silently retried or re-charged.
type CommitConflictError struct {
	Conflicting models.Reservation
	Receipt     *models.PaymentReceipt
}

func (e *CommitConflictError) Error() string {
	if e.Conflicting.ID == "" {
		return fmt.Sprintf("payment %s captured but the booking could not be written; contact an operator",
			e.Receipt.TxRef)
	}
	return fmt.Sprintf("payment %s captured but booking lost a conflict with %q; contact an operator",
		e.Receipt.TxRef, e.Conflicting.Summary)
}
