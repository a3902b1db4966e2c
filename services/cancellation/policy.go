package cancellation

import (
	"math/big"
	"time"
)

// RefundPercent applies the time-based refund policy: a full refund more
// than 24 hours before the reservation starts, half otherwise. Exactly 24
// hours resolves to 50%.
func RefundPercent(start, now time.Time) int {
	hoursUntilStart := start.Sub(now).Hours()
	if hoursUntilStart > 24 {
		return 100
	}
	return 50
}

// RefundAmount computes price * percent / 100 in the token's smallest
// unit, integer math only.
func RefundAmount(price *big.Int, percent int) *big.Int {
	out := new(big.Int).Mul(price, big.NewInt(int64(percent)))
	return out.Div(out, big.NewInt(100))
}
