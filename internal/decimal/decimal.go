// Package decimal implements exact, non-negative arbitrary-precision
// decimal arithmetic for BRC-20 token amounts. Binary floating point must
// never be used for anything that flows through the ledger: a coefficient
// held in a big.Int and a fractional scale are the only representation.
package decimal

import (
	"fmt"
	"math/big"
	"strings"
)

// Decimal is a non-negative arbitrary-precision decimal value: its value
// is coeff / 10^scale. The zero Decimal is a valid representation of 0.
type Decimal struct {
	coeff *big.Int
	scale int32
}

var (
	bigZero = big.NewInt(0)
	bigTen  = big.NewInt(10)
)

// Zero is the additive identity.
func Zero() Decimal {
	return Decimal{coeff: new(big.Int)}
}

// Parse decodes an ASCII decimal string per the BRC-20 amount grammar:
// an optional integer part, an optional '.' followed by a fractional
// part, at least one digit overall. Leading '+', a leading '-', scientific
// notation, whitespace, and empty strings are all rejected.
func Parse(s string) (Decimal, error) {
	if s == "" {
		return Decimal{}, fmt.Errorf("decimal: empty string")
	}
	for _, r := range s {
		if r == '+' || r == '-' || r == 'e' || r == 'E' {
			return Decimal{}, fmt.Errorf("decimal: invalid character %q in %q", r, s)
		}
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return Decimal{}, fmt.Errorf("decimal: multiple decimal points in %q", s)
		}
	}
	if intPart == "" && fracPart == "" {
		return Decimal{}, fmt.Errorf("decimal: no digits in %q", s)
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return Decimal{}, fmt.Errorf("decimal: non-numeric characters in %q", s)
	}

	digits := intPart + fracPart
	coeff, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("decimal: could not parse %q", s)
	}
	return Decimal{coeff: coeff, scale: int32(len(fracPart))}, nil
}

// MustParse is Parse but panics on error; useful in tests and constants.
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Scale reports the number of fractional digits as parsed (trailing
// zeros included), used to enforce the per-token decimals invariant.
func (d Decimal) Scale() int32 {
	return d.scale
}

// IsZero reports whether the value is exactly zero.
func (d Decimal) IsZero() bool {
	return d.coeff == nil || d.coeff.Sign() == 0
}

// IsPositive reports whether the value is strictly greater than zero.
func (d Decimal) IsPositive() bool {
	return d.coeff != nil && d.coeff.Sign() > 0
}

// align returns the coefficients of a and b rescaled to the larger of the
// two scales, plus that common scale.
func align(a, b Decimal) (*big.Int, *big.Int, int32) {
	as, bs := a.scale, b.scale
	ac := coeffOrZero(a.coeff)
	bc := coeffOrZero(b.coeff)
	switch {
	case as == bs:
		return ac, bc, as
	case as > bs:
		scaled := new(big.Int).Mul(bc, pow10(as-bs))
		return ac, scaled, as
	default:
		scaled := new(big.Int).Mul(ac, pow10(bs-as))
		return scaled, bc, bs
	}
}

func coeffOrZero(c *big.Int) *big.Int {
	if c == nil {
		return bigZero
	}
	return c
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// Compare returns -1, 0, or 1 as d is less than, equal to, or greater
// than other.
func (d Decimal) Compare(other Decimal) int {
	ac, bc, _ := align(d, other)
	return ac.Cmp(bc)
}

// GreaterThan reports d > other.
func (d Decimal) GreaterThan(other Decimal) bool {
	return d.Compare(other) > 0
}

// LessThanOrEqual reports d <= other.
func (d Decimal) LessThanOrEqual(other Decimal) bool {
	return d.Compare(other) <= 0
}

// Add returns d + other, exactly.
func (d Decimal) Add(other Decimal) Decimal {
	ac, bc, scale := align(d, other)
	return Decimal{coeff: new(big.Int).Add(ac, bc), scale: scale}
}

// Sub returns d - other. Per this package's non-negative contract, callers
// must ensure other <= d; a result that would go negative is clamped to
// zero rather than panicking, since ledger code always validates
// sufficiency before subtracting.
func (d Decimal) Sub(other Decimal) Decimal {
	ac, bc, scale := align(d, other)
	r := new(big.Int).Sub(ac, bc)
	if r.Sign() < 0 {
		r = new(big.Int)
	}
	return Decimal{coeff: r, scale: scale}
}

// Min returns the smaller of d and other.
func Min(d, other Decimal) Decimal {
	if d.Compare(other) <= 0 {
		return d
	}
	return other
}

// FitsScale reports whether d's fractional digit count does not exceed
// decimals, enforcing the per-token decimal-precision invariant.
func (d Decimal) FitsScale(decimals int32) bool {
	return d.scale <= decimals
}

// String renders the canonical decimal form: no leading zeros in the
// integer part (a bare zero value renders as "0"), and no decimal point
// when the scale is zero.
func (d Decimal) String() string {
	c := coeffOrZero(d.coeff)
	digits := new(big.Int).Abs(c).String()
	if d.scale == 0 {
		return digits
	}
	for int32(len(digits)) <= d.scale {
		digits = "0" + digits
	}
	split := int32(len(digits)) - d.scale
	intPart := digits[:split]
	fracPart := digits[split:]
	return intPart + "." + fracPart
}

// MarshalText implements encoding.TextMarshaler so Decimal can round-trip
// through JSON columns and query results as a plain string.
func (d Decimal) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Decimal) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
