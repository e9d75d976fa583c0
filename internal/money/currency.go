// Package money implements the billing core's 128-bit minor-unit Amount type
// and the closed Currency enum, with currency-aware super-unit conversion and
// binary-safe database encoding.
package money

import "fmt"

// Currency is the closed sum of currencies the billing core understands.
type Currency string

const (
	ETH Currency = "ETH"
	STQ Currency = "STQ"
	BTC Currency = "BTC"
	EUR Currency = "EUR"
	USD Currency = "USD"
	RUB Currency = "RUB"
)

// AllCurrencies lists every member of the closed Currency set, in the order
// used by fixtures and config validation.
var AllCurrencies = []Currency{ETH, STQ, BTC, EUR, USD, RUB}

// cryptoCurrencies and fiatCurrencies partition AllCurrencies.
var cryptoCurrencies = map[Currency]bool{ETH: true, STQ: true, BTC: true}
var fiatCurrencies = map[Currency]bool{EUR: true, USD: true, RUB: true}

func (c Currency) IsCrypto() bool { return cryptoCurrencies[c] }
func (c Currency) IsFiat() bool   { return fiatCurrencies[c] }

func (c Currency) Valid() bool { return cryptoCurrencies[c] || fiatCurrencies[c] }

// minorUnitExponent is the per-currency exponent used to convert between
// minor units (the only unit Amount ever stores) and super units (the
// human-facing decimal form). BTC uses satoshis (1e8); ETH and STQ use wei
// (1e18); every fiat currency uses cents (1e2).
func minorUnitExponent(c Currency) (uint, error) {
	switch c {
	case BTC:
		return 8, nil
	case ETH, STQ:
		return 18, nil
	case EUR, USD, RUB:
		return 2, nil
	default:
		return 0, fmt.Errorf("money: unknown currency %q", c)
	}
}
