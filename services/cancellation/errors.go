package cancellation

import "fmt"

// FlowError is a user-visible, non-fatal cancellation failure.
type FlowError struct {
	Code    string
	Message string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrNoPendingSelection means confirm arrived with no selected reservation
// (never selected, expired, or the process restarted). The user must
// restart the cancellation flow.
var ErrNoPendingSelection = &FlowError{
	Code:    "noPendingSelection",
	Message: "no cancellation in progress, please start again",
}

// RefundFailedError means the ledger credit failed. The reservation is not
// deleted, so the user keeps the booking and can retry cancellation.
type RefundFailedError struct {
	ReservationID string
	Amount        string
	Token         string
	Err           error
}

func (e *RefundFailedError) Error() string {
	return fmt.Sprintf("refund of %s %s for reservation %s failed; the booking is kept",
		e.Amount, e.Token, e.ReservationID)
}

func (e *RefundFailedError) Unwrap() error {
	return e.Err
}
