package models

import (
	"math/big"
	"time"
)

// PaymentReceipt records a confirmed ledger debit backing a booking.
type PaymentReceipt struct {
	TxRef     string    `json:"txRef"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	Network   string    `json:"network"`
	Address   string    `json:"address"`
	Amount    *big.Int  `json:"-"`
	AmountRaw string    `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookingIndexEntry is the structured ownership record written at commit
// time, one per reservation. It replaces marker parsing as the primary way
// to attribute a reservation to its booking user and carries the exact
// amount that was debited.
type BookingIndexEntry struct {
	ReservationID string    `bson:"reservation_id" json:"reservationId"`
	CalendarID    string    `bson:"calendar_id" json:"calendarId"`
	RoomSlug      string    `bson:"room_slug" json:"roomSlug"`
	GuildID       string    `bson:"guild_id" json:"guildId"`
	OwnerID       string    `bson:"owner_id" json:"ownerId"`
	Token         string    `bson:"token" json:"token"`
	PriceAmount   string    `bson:"price_amount" json:"priceAmount"` // smallest unit, decimal string
	PaymentRef    string    `bson:"payment_ref" json:"paymentRef"`
	Refunded      bool      `bson:"refunded" json:"refunded"`
	RefundRef     string    `bson:"refund_ref,omitempty" json:"refundRef,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
	RefundedAt    time.Time `bson:"refunded_at,omitempty" json:"refundedAt,omitzero"`
}
