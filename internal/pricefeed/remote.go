package pricefeed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/mkstocker/portfolio-service/internal/config"
	"github.com/shopspring/decimal"
)

// RemoteSource fetches prices from an external quote API.
type RemoteSource struct {
	client     *resty.Client
	maxRetries int
}

// NewRemoteSource creates a price source backed by the configured quote API.
func NewRemoteSource(cfg *config.Config) *RemoteSource {
	client := resty.New().
		SetBaseURL(cfg.PriceFeed.QuoteAPIURL).
		SetTimeout(cfg.PriceFeed.Timeout)

	return &RemoteSource{
		client:     client,
		maxRetries: cfg.PriceFeed.MaxRetries,
	}
}

type quoteResponse struct {
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

type historyResponse struct {
	History []PricePoint `json:"history"`
}

// CurrentPrice fetches the latest quote, retrying on failure. After the
// last attempt a zero quote is returned rather than an error, so one dead
// ticker does not take down a whole portfolio refresh.
func (r *RemoteSource) CurrentPrice(ctx context.Context, ticker string) (Quote, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		var qr quoteResponse
		resp, err := r.client.R().
			SetContext(ctx).
			SetResult(&qr).
			SetPathParam("ticker", ticker).
			Get("/quote/{ticker}")

		if err == nil && resp.IsSuccess() {
			return Quote{Ticker: ticker, Price: qr.Price, ChangePercent: qr.ChangePercent}, nil
		}

		if err == nil {
			err = fmt.Errorf("quote API returned status %d", resp.StatusCode())
		}
		lastErr = err
		slog.Warn("quote fetch failed",
			slog.String("ticker", ticker),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
	}

	slog.Error("all quote attempts failed, returning zero quote",
		slog.String("ticker", ticker),
		slog.String("err", lastErr.Error()),
	)
	return Quote{Ticker: ticker, Price: decimal.Zero, ChangePercent: decimal.Zero}, nil
}

// HistoricalPrices fetches the daily closing series for a period.
func (r *RemoteSource) HistoricalPrices(ctx context.Context, ticker, period string) ([]PricePoint, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		var hr historyResponse
		resp, err := r.client.R().
			SetContext(ctx).
			SetResult(&hr).
			SetPathParam("ticker", ticker).
			SetQueryParam("period", period).
			Get("/history/{ticker}")

		if err == nil && resp.IsSuccess() {
			return hr.History, nil
		}

		if err == nil {
			err = fmt.Errorf("quote API returned status %d", resp.StatusCode())
		}
		lastErr = err
		slog.Warn("history fetch failed",
			slog.String("ticker", ticker),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
	}

	return []PricePoint{}, fmt.Errorf("failed to fetch history for %s: %w", ticker, lastErr)
}
