package cancellation

import (
	"math/big"
	"testing"
	"time"
)

func TestRefundPercentBoundary(t *testing.T) {
	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		start time.Time
		want  int
	}{
		{"30 hours out", now.Add(30 * time.Hour), 100},
		{"just over 24 hours", now.Add(24*time.Hour + time.Second), 100},
		{"exactly 24 hours", now.Add(24 * time.Hour), 50},
		{"10 hours out", now.Add(10 * time.Hour), 50},
		{"already started", now.Add(-time.Hour), 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RefundPercent(tc.start, now); got != tc.want {
				t.Errorf("RefundPercent = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRefundAmount(t *testing.T) {
	cases := []struct {
		price   int64
		percent int
		want    int64
	}{
		{1500, 100, 1500},
		{1500, 50, 750},
		{1, 50, 0}, // integer division truncates toward zero
		{0, 100, 0},
	}
	for _, tc := range cases {
		got := RefundAmount(big.NewInt(tc.price), tc.percent)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Errorf("RefundAmount(%d, %d%%) = %s, want %d", tc.price, tc.percent, got, tc.want)
		}
	}
	// The input price is never mutated.
	price := big.NewInt(1500)
	RefundAmount(price, 50)
	if price.Cmp(big.NewInt(1500)) != 0 {
		t.Errorf("RefundAmount mutated its input: %s", price)
	}
}
