// Package pricefeed supplies current and historical prices for tickers,
// either from a remote quote API or from a deterministic mock used in
// local development.
package pricefeed

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is the latest known price for a ticker.
type Quote struct {
	Ticker        string          `json:"ticker"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

// PricePoint is one historical closing price.
type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Source provides price data for tickers.
type Source interface {
	CurrentPrice(ctx context.Context, ticker string) (Quote, error)
	HistoricalPrices(ctx context.Context, ticker, period string) ([]PricePoint, error)
}

// periodDays maps a request period to a number of daily data points.
func periodDays(period string) int {
	switch period {
	case "1mo":
		return 30
	case "3mo":
		return 90
	case "6mo":
		return 180
	case "2y":
		return 730
	case "5y":
		return 1825
	default: // 1y
		return 365
	}
}
