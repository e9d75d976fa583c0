package money

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Amount is a non-negative 128-bit-safe integer minor-unit value. It is
// backed by uint256.Int (the widest checked-arithmetic integer the pack
// offers) with a runtime range check against 2^128-1 so the value always
// round-trips through a Postgres NUMERIC column sized for 128 bits.
type Amount struct {
	v uint256.Int
}

// max128 is 2^128 - 1, the largest value Amount may ever hold.
var max128 = new(uint256.Int).Sub(
	new(uint256.Int).Lsh(uint256.NewInt(1), 128),
	uint256.NewInt(1),
)

// Zero is the additive identity.
func Zero() Amount { return Amount{} }

// NewFromUint64 builds an Amount from a uint64 minor-unit value.
func NewFromUint64(v uint64) Amount {
	return Amount{v: *uint256.NewInt(v)}
}

// NewFromString parses a base-10 minor-unit integer string (no sign, no
// decimal point) into an Amount, checking it fits in 128 bits.
func NewFromString(s string) (Amount, error) {
	var i uint256.Int
	if err := i.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("money: %q is not a valid minor-unit integer: %w", s, err)
	}
	if i.Gt(max128) {
		return Amount{}, fmt.Errorf("money: %q exceeds the 128-bit amount range", s)
	}
	return Amount{v: i}, nil
}

// String renders the minor-unit integer value, with no currency context.
func (a Amount) String() string { return a.v.Dec() }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp compares two amounts the way big.Int.Cmp does.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) GreaterOrEqual(b Amount) bool { return a.Cmp(b) >= 0 }

// CheckedAdd returns a+b, or ok=false on overflow past the 128-bit range.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	var out uint256.Int
	// uint256.Int.Add operates mod 2^256; detect the narrower 128-bit overflow
	// explicitly since the stored range is 128 bits, not 256.
	out.Add(&a.v, &b.v)
	if out.Gt(max128) {
		return Amount{}, false
	}
	return Amount{v: out}, true
}

// CheckedSub returns a-b, or ok=false if b > a.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	if a.v.Lt(&b.v) {
		return Amount{}, false
	}
	var out uint256.Int
	out.Sub(&a.v, &b.v)
	return Amount{v: out}, true
}

// CheckedMul returns a*b, or ok=false on overflow past the 128-bit range.
func (a Amount) CheckedMul(b Amount) (Amount, bool) {
	var out uint256.Int
	overflowed := out.MulOverflow(&a.v, &b.v)
	if overflowed || out.Gt(max128) {
		return Amount{}, false
	}
	return Amount{v: out}, true
}

// CheckedDiv returns a/b (integer division), or ok=false if b is zero.
func (a Amount) CheckedDiv(b Amount) (Amount, bool) {
	if b.v.IsZero() {
		return Amount{}, false
	}
	var out uint256.Int
	out.Div(&a.v, &b.v)
	return Amount{v: out}, true
}

// MulDivBasisPoints computes a * bps / 10000 using checked 256-bit
// intermediate arithmetic, the way fee calculation (§4.1) expresses an order
// percentage as integer basis points.
func (a Amount) MulDivBasisPoints(bps int64) (Amount, bool) {
	if bps < 0 {
		return Amount{}, false
	}
	bp := uint256.NewInt(uint64(bps))
	var prod uint256.Int
	if prod.MulOverflow(&a.v, bp) {
		return Amount{}, false
	}
	var out uint256.Int
	out.Div(&prod, uint256.NewInt(10000))
	if out.Gt(max128) {
		return Amount{}, false
	}
	return Amount{v: out}, true
}

// ToSuperUnit converts a minor-unit Amount into its super-unit decimal
// representation (e.g. wei -> ETH) for the given currency, at full exponent
// precision. Full precision (rather than a truncated display precision) is
// required to satisfy the amount round-trip invariant in §8 property 1.
func (a Amount) ToSuperUnit(c Currency) (string, error) {
	exp, err := minorUnitExponent(c)
	if err != nil {
		return "", err
	}
	s := a.v.Dec()
	if exp == 0 {
		return s, nil
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for len(s) <= int(exp) {
		s = "0" + s
	}
	intPart := s[:len(s)-int(exp)]
	fracPart := s[len(s)-int(exp):]
	out := intPart + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out, nil
}

// FromSuperUnit parses a decimal super-unit string (e.g. "1.5" ETH) into a
// minor-unit Amount for the given currency. The input must represent an
// exact integer number of minor units — any residual fractional digit below
// the currency's minor-unit exponent is a validation error, not silently
// truncated, so a round trip through ToSuperUnit/FromSuperUnit never loses
// value.
func FromSuperUnit(c Currency, decimal string) (Amount, error) {
	exp, err := minorUnitExponent(c)
	if err != nil {
		return Amount{}, err
	}
	r, ok := new(big.Rat).SetString(decimal)
	if !ok {
		return Amount{}, fmt.Errorf("money: %q is not a valid decimal amount", decimal)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(scale))
	if !scaled.IsInt() {
		return Amount{}, fmt.Errorf("money: %q has more precision than %s supports", decimal, c)
	}
	return NewFromString(scaled.Num().String())
}

// Uint256 returns the underlying uint256.Int, e.g. for pgtype.Numeric encoding.
func (a Amount) Uint256() uint256.Int { return a.v }
