package pricefeed

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// basePrices anchors mock quotes to realistic levels per ticker.
var basePrices = map[string]float64{
	"AAPL":     175.0,
	"MSFT":     350.0,
	"GOOGL":    140.0,
	"AMZN":     130.0,
	"META":     300.0,
	"TSLA":     250.0,
	"NVDA":     400.0,
	"BTC-USD":  50000.0,
	"ETH-USD":  3000.0,
	"XRP-USD":  0.5,
	"SPLG":     55.0,
	"QQQM":     170.0,
	"DOGE-USD": 0.1,
	"ADA-USD":  0.4,
}

// MockSource generates plausible price data without touching the network.
type MockSource struct {
	rng *rand.Rand
	now func() time.Time
}

// NewMockSource creates a mock price source.
func NewMockSource() *MockSource {
	return &MockSource{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

func (m *MockSource) basePrice(ticker string) float64 {
	if base, ok := basePrices[ticker]; ok {
		return base
	}
	return 50 + m.rng.Float64()*450
}

// CurrentPrice returns the ticker's base price with a small random jitter.
func (m *MockSource) CurrentPrice(_ context.Context, ticker string) (Quote, error) {
	base := m.basePrice(ticker)
	jitter := 1 + (m.rng.Float64()*0.1 - 0.05)
	change := m.rng.Float64()*6 - 3

	return Quote{
		Ticker:        ticker,
		Price:         decimal.NewFromFloat(base * jitter).Round(4),
		ChangePercent: decimal.NewFromFloat(change).Round(2),
	}, nil
}

// HistoricalPrices returns a synthetic daily series with a gentle upward
// trend (about 20% over the whole period) plus daily noise.
func (m *MockSource) HistoricalPrices(_ context.Context, ticker, period string) ([]PricePoint, error) {
	days := periodDays(period)
	base := m.basePrice(ticker)
	today := m.now()

	points := make([]PricePoint, 0, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -(days - i))
		noise := m.rng.Float64()*0.05 - 0.02
		trend := float64(i) / float64(days) * 0.2

		points = append(points, PricePoint{
			Date:  date.Format("2006-01-02"),
			Price: decimal.NewFromFloat(base * (1 + trend + noise)).Round(4),
		})
	}

	return points, nil
}
