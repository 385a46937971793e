package costs

import (
	"fmt"
	"strings"
)

// Amount is a monetary value in micro-USD (1/1,000,000 of a dollar).
// Using integer minor units avoids floating-point rounding drift in
// financial arithmetic.
type Amount int64

// MicroUSDPerUSD is the number of Amount units in one US dollar.
const MicroUSDPerUSD = 1_000_000

// maxFractionDigits is the precision of Amount in decimal digits.
const maxFractionDigits = 6

// String formats the amount as a dollar value (e.g. "$0.004000").
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%06d", sign, v/MicroUSDPerUSD, v%MicroUSDPerUSD)
}

// USD returns the amount as a float64 dollar value. This is for display
// and metrics only; never feed the result back into cost arithmetic.
func (a Amount) USD() float64 {
	return float64(a) / MicroUSDPerUSD
}

// ParseUSD parses a decimal dollar string (e.g. "0.00025") into an Amount.
// The value is parsed digit-by-digit so results are exact; no float64 is
// involved. Values with more than six fractional digits are rejected
// because they cannot be represented.
func ParseUSD(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > maxFractionDigits {
		return 0, fmt.Errorf("amount %q exceeds micro-USD precision (%d fractional digits)", s, maxFractionDigits)
	}

	var v int64
	for _, c := range whole {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		v = v*10 + int64(c-'0')
		if v > (1<<62)/MicroUSDPerUSD {
			return 0, fmt.Errorf("amount %q overflows", s)
		}
	}
	v *= MicroUSDPerUSD

	scale := int64(MicroUSDPerUSD / 10)
	for _, c := range frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		v += int64(c-'0') * scale
		scale /= 10
	}

	if neg {
		v = -v
	}
	return Amount(v), nil
}

// MustParseUSD is like ParseUSD but panics on error. It is intended for
// static pricing tables and tests.
func MustParseUSD(s string) Amount {
	a, err := ParseUSD(s)
	if err != nil {
		panic(err)
	}
	return a
}

// divRoundHalfUp divides n by d (d > 0) rounding half away from zero.
func divRoundHalfUp(n, d int64) int64 {
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}
