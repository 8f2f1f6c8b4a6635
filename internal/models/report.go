package models

import "github.com/shopspring/decimal"

// LotView is a single lot with display-ready figures in the
// requested currency. Derived, never persisted.
type LotView struct {
	ID                string          `json:"id"`
	Ticker            string          `json:"ticker"`
	Quantity          decimal.Decimal `json:"quantity"`
	BuyPrice          decimal.Decimal `json:"buy_price"`
	BuyDate           Date            `json:"buy_date"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
	Order             int             `json:"order"`
}

// TickerSummary aggregates all lots sharing a ticker symbol.
type TickerSummary struct {
	Ticker            string          `json:"ticker"`
	Lots              []LotView       `json:"lots"`
	TotalQuantity     decimal.Decimal `json:"total_quantity"`
	TotalInvestment   decimal.Decimal `json:"total_investment"`
	TotalCurrentValue decimal.Decimal `json:"total_current_value"`
	TotalProfitLoss   decimal.Decimal `json:"total_profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
	Order             int             `json:"order"`
}

// PortfolioSummary holds whole-portfolio totals.
type PortfolioSummary struct {
	TotalInvestment   decimal.Decimal `json:"total_investment"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
}

// PieChartSlice is one allocation slice per base ticker.
type PieChartSlice struct {
	Name       string          `json:"name"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PerformanceEntry ranks one ticker by profit/loss percentage.
type PerformanceEntry struct {
	Ticker            string          `json:"ticker"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
}

// Report is the full aggregation output for one currency.
type Report struct {
	Currency           string             `json:"currency"`
	TickerSummaries    []TickerSummary    `json:"ticker_summaries"`
	PortfolioSummary   PortfolioSummary   `json:"portfolio_summary"`
	PieChartSlices     []PieChartSlice    `json:"pie_chart_slices"`
	PerformanceRanking []PerformanceEntry `json:"performance_ranking"`
}
