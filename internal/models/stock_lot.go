package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockLot represents one purchase transaction of a single ticker.
type StockLot struct {
	ID           string          `json:"id"`
	Ticker       string          `json:"ticker"`
	Quantity     decimal.Decimal `json:"quantity"`
	BuyPrice     decimal.Decimal `json:"buy_price"`
	BuyDate      Date            `json:"buy_date"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Currency     string          `json:"currency,omitempty"`
	Order        int             `json:"order"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BaseTicker returns the portion of the ticker before the first hyphen,
// used to merge symbol variants ("BTC-USD" -> "BTC") in aggregate views.
func (l *StockLot) BaseTicker() string {
	return BaseTicker(l.Ticker)
}

// BaseTicker returns the base form of a ticker symbol.
func BaseTicker(ticker string) string {
	if i := strings.Index(ticker, "-"); i >= 0 {
		return ticker[:i]
	}
	return ticker
}

// StockLotUpdate carries a partial field set for an update operation.
// Nil fields are left unchanged. ID and ticker are immutable.
type StockLotUpdate struct {
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	BuyPrice     *decimal.Decimal `json:"buy_price,omitempty"`
	BuyDate      *Date            `json:"buy_date,omitempty"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
	Order        *int             `json:"order,omitempty"`
}

// LotEvent represents a Kafka event for lot changes.
type LotEvent struct {
	EventType string    `json:"event_type"`
	Lot       *StockLot `json:"lot,omitempty"`
	LotID     string    `json:"lot_id"`
	Ticker    string    `json:"ticker,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
