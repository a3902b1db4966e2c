package models

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseAmount converts a decimal token amount (e.g. "10", "2.5") into the
// token's smallest integer unit. The fractional part must fit within the
// token's decimals.
func ParseAmount(value string, decimals int) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(value, "-") {
		neg = true
		value = value[1:]
	}
	whole, frac := value, ""
	if i := strings.IndexByte(value, '.'); i >= 0 {
		whole, frac = value[:i], value[i+1:]
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q exceeds %d decimals", value, decimals)
	}
	frac = frac + strings.Repeat("0", decimals-len(frac))
	if whole == "" {
		whole = "0"
	}
	amount, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if neg {
		amount.Neg(amount)
	}
	return amount, nil
}

// FormatAmount renders a smallest-unit amount as an exact decimal string,
// trimming trailing zeros.
func FormatAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	s := new(big.Int).Abs(amount).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], s[len(s)-decimals:]
	frac = strings.TrimRight(frac, "0")
	out := whole
	if frac != "" {
		out = whole + "." + frac
	}
	if amount.Sign() < 0 {
		out = "-" + out
	}
	return out
}

// DisplayAmount renders a smallest-unit amount rounded to two decimals for
// user-facing messages. The authoritative amount stays integer; only the
// string is rounded.
func DisplayAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0.00"
	}
	f := new(big.Float).SetInt(amount)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f.Quo(f, scale)
	return f.Text('f', 2)
}
