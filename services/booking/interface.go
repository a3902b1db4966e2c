package booking

import (
	"context"

	"commonroom/models"
)

// FlowService is the per-user booking conversation state machine. Every
// method is one externally driven transition; there are no timer-driven
// transitions. A continuation call with no live session returns
// ErrSessionExpired and the flow must restart from date selection.
type FlowService interface {
	StartFlow(ctx context.Context, guildID, userID, roomSlug string) (*FlowState, error)
	ChooseDate(ctx context.Context, guildID, userID, date string) (*FlowState, error)
	ChooseTime(ctx context.Context, guildID, userID string, hour, minute int) (*FlowState, error)
	ChooseDuration(ctx context.Context, guildID, userID string, minutes int) (*FlowState, error)
	SetName(ctx context.Context, guildID, userID, name string) (*ConfirmationView, error)
	Confirmation(ctx context.Context, guildID, userID string) (*ConfirmationView, error)
	Back(ctx context.Context, guildID, userID string, to models.Step) (*FlowState, error)
	Confirm(ctx context.Context, guildID, userID, tokenSymbol string) (*BookingResult, error)
	Abort(ctx context.Context, guildID, userID string) error
}

// FlowState is what the presentation layer needs to render the current
// step's prompt.
type FlowState struct {
	Session    models.BookingSession `json:"session"`
	DaySummary string                `json:"daySummary,omitempty"`
	TimeSlots  []TimeSlot            `json:"timeSlots,omitempty"`
	MaxMinutes int                   `json:"maxMinutes,omitempty"`
}

// QuoteView is one token's price and the user's balance against it,
// recomputed every time the confirmation screen is (re)entered.
type QuoteView struct {
	Token      string `json:"token"`
	Price      string `json:"price"`
	PriceExact string `json:"priceExact"`
	Balance    string `json:"balance"`
	Sufficient bool   `json:"sufficient"`
}

// ConfirmationView is the confirmation screen's data.
type ConfirmationView struct {
	Session models.BookingSession `json:"session"`
	Room    string                `json:"room"`
	Quotes  []QuoteView           `json:"quotes"`
}

// BookingResult is a completed booking: the committed reservation and the
// payment that backs it.
type BookingResult struct {
	Reservation models.Reservation    `json:"reservation"`
	Receipt     models.PaymentReceipt `json:"receipt"`
	PriceText   string                `json:"priceText"`
}

// Compensator enqueues a compensating credit when a payment was captured
// but the reservation write was lost.
type Compensator interface {
	EnqueueCredit(ctx context.Context, task CompensationTask) error
}

// CompensationTask carries everything needed to re-issue the captured
// amount back to the payer.
type CompensationTask struct {
	UserID     string `json:"userId"`
	GuildID    string `json:"guildId"`
	Network    string `json:"network"`
	Token      string `json:"token"`
	Address    string `json:"address"`
	Amount     string `json:"amount"` // smallest unit, decimal string
	PaymentRef string `json:"paymentRef"`
	Reason     string `json:"reason"`
}
