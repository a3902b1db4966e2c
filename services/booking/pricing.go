package booking

import (
	"math/big"

	"commonroom/models"
)

var sixty = big.NewInt(60)

// Price converts (hourly rate, duration) into the exact payable amount in
// the token's smallest unit: rate * minutes / 60, all integer math. The
// debited amount must never drift from this value; only display strings
// may round.
func Price(ratePerHour *big.Int, durationMinutes int) *big.Int {
	if ratePerHour == nil || durationMinutes <= 0 {
		return big.NewInt(0)
	}
	total := new(big.Int).Mul(ratePerHour, big.NewInt(int64(durationMinutes)))
	return total.Div(total, sixty)
}

// PriceQuote is one token's payable amount for a candidate booking.
type PriceQuote struct {
	Token  models.Token
	Amount *big.Int
}

// QuoteAll prices a duration in every token the room accepts. The flow may
// display all of them but settles in exactly one.
func QuoteAll(room *models.Resource, tokens []models.Token, durationMinutes int) []PriceQuote {
	var quotes []PriceQuote
	for _, tok := range tokens {
		rate := room.RateFor(tok.Symbol)
		if rate == nil {
			continue
		}
		quotes = append(quotes, PriceQuote{Token: tok, Amount: Price(rate, durationMinutes)})
	}
	return quotes
}
