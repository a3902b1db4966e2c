package models

import "math/big"

// Token describes a community-issued token accepted for payment.
type Token struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int    `json:"decimals" yaml:"decimals"`
	Network  string `json:"network" yaml:"network"`
}

// Resource is an immutable room catalog entry. Rates are hourly prices in
// the token's smallest unit, keyed by token symbol.
type Resource struct {
	Slug       string              `json:"slug"`
	Name       string              `json:"name"`
	CalendarID string              `json:"calendarId"`
	Rates      map[string]*big.Int `json:"-"`
}

// Bookable reports whether the room has a calendar binding.
func (r *Resource) Bookable() bool {
	return r.CalendarID != ""
}

// RateFor returns the hourly rate for a token symbol, or nil if the room
// does not accept that token.
func (r *Resource) RateFor(symbol string) *big.Int {
	rate, ok := r.Rates[symbol]
	if !ok {
		return nil
	}
	return rate
}
