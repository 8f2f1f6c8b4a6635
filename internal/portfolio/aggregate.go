// Package portfolio computes display-ready summaries from a set of stock
// lots: per-ticker totals, whole-portfolio totals, allocation slices for a
// pie chart and a profit/loss performance ranking. Aggregation is a pure
// function of its inputs; it never mutates the lots it is given.
package portfolio

import (
	"sort"

	"github.com/mkstocker/portfolio-service/internal/models"
	"github.com/shopspring/decimal"
)

// defaultOrder sorts tickers without an explicit display order last.
const defaultOrder = 999

var hundred = decimal.NewFromInt(100)

// Aggregate groups lots by ticker, computes investment and profit/loss
// totals, converts every monetary figure into the display currency and
// shapes the result for rendering. Tickers named in fixedOrder always
// precede the rest, in the given order; the remainder sort by their
// numeric display order.
func Aggregate(lots []*models.StockLot, displayCurrency string, fixedOrder []string) (*models.Report, error) {
	rate, err := Rate(displayCurrency)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Currency:           displayCurrency,
		TickerSummaries:    []models.TickerSummary{},
		PieChartSlices:     []models.PieChartSlice{},
		PerformanceRanking: []models.PerformanceEntry{},
	}
	report.PortfolioSummary = portfolioTotals(lots, rate)

	if len(lots) == 0 {
		return report, nil
	}

	report.TickerSummaries = tickerSummaries(lots, rate, fixedOrder)
	report.PieChartSlices = pieChartSlices(lots, rate)
	report.PerformanceRanking = performanceRanking(lots, rate)

	return report, nil
}

// tickerSummaries partitions lots by exact ticker for the transaction-list
// view. Lots within a ticker are ordered by buy date descending, ties kept
// in input order.
func tickerSummaries(lots []*models.StockLot, rate decimal.Decimal, fixedOrder []string) []models.TickerSummary {
	groups := map[string][]*models.StockLot{}
	var tickers []string
	for _, l := range lots {
		if _, seen := groups[l.Ticker]; !seen {
			tickers = append(tickers, l.Ticker)
		}
		groups[l.Ticker] = append(groups[l.Ticker], l)
	}

	summaries := make([]models.TickerSummary, 0, len(tickers))
	for _, ticker := range tickers {
		group := append([]*models.StockLot(nil), groups[ticker]...)
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].BuyDate.After(group[j].BuyDate)
		})

		s := models.TickerSummary{
			Ticker:        ticker,
			Lots:          make([]models.LotView, 0, len(group)),
			TotalQuantity: decimal.Zero,
			Order:         displayOrder(group[0]),
		}

		investment := decimal.Zero
		currentValue := decimal.Zero
		for _, l := range group {
			s.TotalQuantity = s.TotalQuantity.Add(l.Quantity)
			investment = investment.Add(l.BuyPrice.Mul(l.Quantity))
			currentValue = currentValue.Add(l.CurrentPrice.Mul(l.Quantity))
			s.Lots = append(s.Lots, lotView(l, rate))
		}

		profitLoss := currentValue.Sub(investment)
		s.TotalInvestment = investment.Mul(rate)
		s.TotalCurrentValue = currentValue.Mul(rate)
		s.TotalProfitLoss = profitLoss.Mul(rate)
		s.ProfitLossPercent = percentOf(profitLoss, investment)

		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaryLess(summaries[i], summaries[j], fixedOrder)
	})

	return summaries
}

// summaryLess orders fixed tickers first by list position, then everything
// else by display order.
func summaryLess(a, b models.TickerSummary, fixedOrder []string) bool {
	ai := fixedOrderIndex(a.Ticker, fixedOrder)
	bi := fixedOrderIndex(b.Ticker, fixedOrder)

	switch {
	case ai >= 0 && bi >= 0:
		return ai < bi
	case ai >= 0:
		return true
	case bi >= 0:
		return false
	default:
		return a.Order < b.Order
	}
}

// fixedOrderIndex matches the exact ticker first, then its base form, so a
// list entry "BTC" also pins "BTC-USD".
func fixedOrderIndex(ticker string, fixedOrder []string) int {
	base := models.BaseTicker(ticker)
	for i, t := range fixedOrder {
		if t == ticker || t == base {
			return i
		}
	}
	return -1
}

func portfolioTotals(lots []*models.StockLot, rate decimal.Decimal) models.PortfolioSummary {
	investment := decimal.Zero
	currentValue := decimal.Zero
	for _, l := range lots {
		investment = investment.Add(l.BuyPrice.Mul(l.Quantity))
		currentValue = currentValue.Add(l.CurrentPrice.Mul(l.Quantity))
	}

	profitLoss := currentValue.Sub(investment)
	return models.PortfolioSummary{
		TotalInvestment:   investment.Mul(rate),
		CurrentValue:      currentValue.Mul(rate),
		ProfitLoss:        profitLoss.Mul(rate),
		ProfitLossPercent: percentOf(profitLoss, investment),
	}
}

// pieChartSlices merges symbol variants by base ticker and produces one
// slice per base ticker, sorted by value descending.
func pieChartSlices(lots []*models.StockLot, rate decimal.Decimal) []models.PieChartSlice {
	values := map[string]decimal.Decimal{}
	var order []string
	totalValue := decimal.Zero

	for _, l := range lots {
		value := l.CurrentPrice.Mul(l.Quantity)
		totalValue = totalValue.Add(value)

		base := l.BaseTicker()
		if _, seen := values[base]; !seen {
			order = append(order, base)
		}
		values[base] = values[base].Add(value)
	}

	slices := make([]models.PieChartSlice, 0, len(order))
	for _, base := range order {
		slices = append(slices, models.PieChartSlice{
			Name:       base,
			Value:      values[base].Mul(rate),
			Percentage: percentOf(values[base], totalValue),
		})
	}

	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Value.GreaterThan(slices[j].Value)
	})

	return slices
}

// performanceRanking ranks exact tickers by profit/loss percentage,
// best first.
func performanceRanking(lots []*models.StockLot, rate decimal.Decimal) []models.PerformanceEntry {
	type totals struct {
		investment   decimal.Decimal
		currentValue decimal.Decimal
	}

	perTicker := map[string]*totals{}
	var order []string
	for _, l := range lots {
		t, ok := perTicker[l.Ticker]
		if !ok {
			t = &totals{investment: decimal.Zero, currentValue: decimal.Zero}
			perTicker[l.Ticker] = t
			order = append(order, l.Ticker)
		}
		t.investment = t.investment.Add(l.BuyPrice.Mul(l.Quantity))
		t.currentValue = t.currentValue.Add(l.CurrentPrice.Mul(l.Quantity))
	}

	ranking := make([]models.PerformanceEntry, 0, len(order))
	for _, ticker := range order {
		t := perTicker[ticker]
		profitLoss := t.currentValue.Sub(t.investment)
		ranking = append(ranking, models.PerformanceEntry{
			Ticker:            ticker,
			ProfitLoss:        profitLoss.Mul(rate),
			ProfitLossPercent: percentOf(profitLoss, t.investment),
		})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].ProfitLossPercent.GreaterThan(ranking[j].ProfitLossPercent)
	})

	return ranking
}

func lotView(l *models.StockLot, rate decimal.Decimal) models.LotView {
	currentValue := l.CurrentPrice.Mul(l.Quantity)
	profitLoss := l.CurrentPrice.Sub(l.BuyPrice).Mul(l.Quantity)

	return models.LotView{
		ID:                l.ID,
		Ticker:            l.Ticker,
		Quantity:          l.Quantity,
		BuyPrice:          l.BuyPrice.Mul(rate),
		BuyDate:           l.BuyDate,
		CurrentPrice:      l.CurrentPrice.Mul(rate),
		CurrentValue:      currentValue.Mul(rate),
		ProfitLoss:        profitLoss.Mul(rate),
		ProfitLossPercent: percentOf(l.CurrentPrice.Sub(l.BuyPrice), l.BuyPrice),
		Order:             l.Order,
	}
}

// percentOf guards the zero-denominator case: a zero base yields 0 percent
// rather than a division error.
func percentOf(part, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return part.Div(base).Mul(hundred)
}

func displayOrder(l *models.StockLot) int {
	if l.Order <= 0 {
		return defaultOrder
	}
	return l.Order
}
