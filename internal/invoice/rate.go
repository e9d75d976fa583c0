package invoice

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cyphera/billing-core/internal/money"
)

// numericFromDecimal wraps a decimal string (e.g. a collaborator-quoted
// exchange rate) as a pgtype.Numeric, the same way money.Amount.ToNumeric
// wraps an integer minor-unit string.
func numericFromDecimal(s string) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("invoice: %q is not a valid decimal rate: %w", s, err)
	}
	return n, nil
}

// rateToRat decodes an OrderExchangeRate.ExchangeRate column into a
// big.Rat. The stored convention (no exact algorithm survives in the
// original source) is: exchange_rate expresses buyer-currency minor units
// per 1 seller-currency minor unit, so converting an order's total requires
// a single multiplication, not a further unit-exponent adjustment.
func rateToRat(n pgtype.Numeric) (*big.Rat, error) {
	if !n.Valid {
		return nil, fmt.Errorf("invoice: exchange rate is NULL")
	}
	v, err := n.Value()
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("invoice: unexpected exchange rate representation %T", v)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invoice: %q is not a valid decimal rate", s)
	}
	return r, nil
}

// convertByRate converts amount (in the seller's minor units) into the
// buyer's minor units by multiplying by rate and truncating toward zero —
// required_total is defined as a sum of truncated per-order conversions,
// never a rounded one, so overpayment/underpayment stays on the side the
// rate naturally produces rather than compounding a rounding choice.
func convertByRate(amount money.Amount, rate *big.Rat) (money.Amount, error) {
	amt, ok := new(big.Int).SetString(amount.String(), 10)
	if !ok {
		return money.Amount{}, fmt.Errorf("invoice: invalid amount %q", amount.String())
	}
	product := new(big.Rat).Mul(new(big.Rat).SetInt(amt), rate)
	floor := new(big.Int).Quo(product.Num(), product.Denom())
	return money.NewFromString(floor.String())
}

// feeAmountRoundHalfEven computes total * bps / 10000, rounded half to even,
// the rounding the fiat capturable-update handler applies when synthesizing
// a Fee row (§4.1); the general basis-points rule elsewhere in the invoice
// service truncates instead via money.Amount.MulDivBasisPoints.
func feeAmountRoundHalfEven(total money.Amount, bps int64) (money.Amount, error) {
	totalInt, ok := new(big.Int).SetString(total.String(), 10)
	if !ok {
		return money.Amount{}, fmt.Errorf("invoice: invalid amount %q", total.String())
	}
	num := new(big.Int).Mul(totalInt, big.NewInt(bps))
	denom := big.NewInt(10000)
	quo, rem := new(big.Int), new(big.Int)
	quo.QuoRem(num, denom, rem)

	twiceRem := new(big.Int).Mul(rem, big.NewInt(2))
	switch twiceRem.CmpAbs(denom) {
	case 1:
		quo.Add(quo, big.NewInt(1))
	case 0:
		if quo.Bit(0) == 1 {
			quo.Add(quo, big.NewInt(1))
		}
	}
	return money.NewFromString(quo.String())
}
