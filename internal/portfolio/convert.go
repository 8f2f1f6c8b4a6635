package portfolio

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnknownCurrency is returned for a currency code with no known rate.
var ErrUnknownCurrency = errors.New("unknown currency code")

// Static USD conversion rates. Every monetary figure is computed in USD
// first and multiplied by the target rate.
var conversionRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"AED": decimal.NewFromFloat(3.67),
	"INR": decimal.NewFromFloat(83.12),
}

// Rate returns the USD conversion rate for the given currency code.
func Rate(currency string) (decimal.Decimal, error) {
	rate, ok := conversionRates[currency]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	return rate, nil
}

// Rates returns a copy of the full rate table.
func Rates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(conversionRates))
	for code, rate := range conversionRates {
		out[code] = rate
	}
	return out
}

// Convert multiplies a USD value by the target currency rate.
func Convert(valueUSD decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, err := Rate(currency)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return valueUSD.Mul(rate), nil
}
