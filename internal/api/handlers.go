package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mkstocker/portfolio-service/internal/database"
	"github.com/mkstocker/portfolio-service/internal/models"
	"github.com/mkstocker/portfolio-service/internal/portfolio"
	"github.com/mkstocker/portfolio-service/internal/pricefeed"
	"github.com/shopspring/decimal"
)

// defaultFixedOrder pins the house tickers to the top of summary views
// unless the caller supplies its own list.
var defaultFixedOrder = []string{"SPLG", "QQQM", "BTC-USD", "XRP-USD"}

// LotStore is the persistence surface the handlers depend on.
type LotStore interface {
	GetAllStockLots() ([]*models.StockLot, error)
	GetStockLotByID(id string) (*models.StockLot, error)
	CreateStockLot(l *models.StockLot) error
	UpdateStockLot(id string, upd *models.StockLotUpdate) (*models.StockLot, error)
	DeleteStockLot(id string) (*models.StockLot, error)
	Revision() (int64, error)
}

// EventPublisher publishes lot change events. Publishing is best effort;
// handlers log failures and never fail the request over them.
type EventPublisher interface {
	PublishLotAdded(ctx context.Context, lot *models.StockLot) error
	PublishLotUpdated(ctx context.Context, lot *models.StockLot) error
	PublishLotRemoved(ctx context.Context, lot *models.StockLot) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store    LotStore
	prices   pricefeed.Source
	producer EventPublisher
	apiToken string
}

// NewHandler creates a new Handler. producer may be nil when event
// publishing is not configured.
func NewHandler(store LotStore, prices pricefeed.Source, producer EventPublisher, apiToken string) *Handler {
	return &Handler{
		store:    store,
		prices:   prices,
		producer: producer,
		apiToken: apiToken,
	}
}

type stocksResponse struct {
	Stocks   []*models.StockLot `json:"stocks"`
	Revision int64              `json:"revision"`
}

// GetStocks handles GET /api/stocks. Current prices are refreshed from the
// price source in memory; the stored lots are not mutated.
func (h *Handler) GetStocks(w http.ResponseWriter, r *http.Request) {
	lots, err := h.store.GetAllStockLots()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.refreshPrices(r.Context(), lots)

	revision, err := h.store.Revision()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if lots == nil {
		lots = []*models.StockLot{}
	}
	respondJSON(w, http.StatusOK, stocksResponse{Stocks: lots, Revision: revision})
}

type createLotRequest struct {
	Ticker       string           `json:"ticker"`
	Quantity     *decimal.Decimal `json:"quantity"`
	BuyPrice     *decimal.Decimal `json:"buy_price"`
	BuyDate      *models.Date     `json:"buy_date"`
	CurrentPrice *decimal.Decimal `json:"current_price"`
	Currency     string           `json:"currency"`
	Order        int              `json:"order"`
}

// CreateStock handles POST /api/stocks
func (h *Handler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var req createLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Ticker == "":
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	case req.Quantity == nil:
		respondError(w, http.StatusBadRequest, "quantity is required")
		return
	case req.BuyPrice == nil:
		respondError(w, http.StatusBadRequest, "buy_price is required")
		return
	case req.BuyDate == nil:
		respondError(w, http.StatusBadRequest, "buy_date is required")
		return
	}

	lot := &models.StockLot{
		Ticker:   req.Ticker,
		Quantity: *req.Quantity,
		BuyPrice: *req.BuyPrice,
		BuyDate:  *req.BuyDate,
		Currency: req.Currency,
		Order:    req.Order,
	}

	if req.CurrentPrice != nil {
		lot.CurrentPrice = *req.CurrentPrice
	} else if h.prices != nil {
		if quote, err := h.prices.CurrentPrice(r.Context(), lot.Ticker); err == nil {
			lot.CurrentPrice = quote.Price
		}
	}

	if err := h.store.CreateStockLot(lot); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishLotAdded(r.Context(), lot); err != nil {
			slog.Error("failed to publish lot added event", slog.String("err", err.Error()))
		}
	}

	respondJSON(w, http.StatusCreated, lot)
}

// UpdateStock handles PUT /api/stocks/{id}
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var upd models.StockLotUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lot, err := h.store.UpdateStockLot(id, &upd)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "stock lot not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishLotUpdated(r.Context(), lot); err != nil {
			slog.Error("failed to publish lot updated event", slog.String("err", err.Error()))
		}
	}

	respondJSON(w, http.StatusOK, lot)
}

// DeleteStock handles DELETE /api/stocks/{id}. The deleted record's prior
// content is returned.
func (h *Handler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	lot, err := h.store.DeleteStockLot(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "stock lot not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishLotRemoved(r.Context(), lot); err != nil {
			slog.Error("failed to publish lot removed event", slog.String("err", err.Error()))
		}
	}

	respondJSON(w, http.StatusOK, lot)
}

// GetPortfolio handles GET /api/portfolio. Query parameters: currency
// (default USD), fixed_order (comma-separated ticker list).
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = "USD"
	}

	fixedOrder := defaultFixedOrder
	if raw := r.URL.Query()["fixed_order"]; len(raw) > 0 {
		fixedOrder = raw
	}

	lots, err := h.store.GetAllStockLots()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.refreshPrices(r.Context(), lots)

	report, err := portfolio.Aggregate(lots, currency, fixedOrder)
	if err != nil {
		if errors.Is(err, portfolio.ErrUnknownCurrency) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetStockHistory handles GET /api/stocks/{ticker}/history
func (h *Handler) GetStockHistory(w http.ResponseWriter, r *http.Request) {
	if h.prices == nil {
		respondError(w, http.StatusInternalServerError, "price feed not configured")
		return
	}

	ticker := mux.Vars(r)["ticker"]
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1y"
	}

	history, err := h.prices.HistoricalPrices(r.Context(), ticker, period)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string][]pricefeed.PricePoint{"history": history})
}

// GetExchangeRates handles GET /api/exchange-rate
func (h *Handler) GetExchangeRates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"rates": portfolio.Rates()})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// refreshPrices overwrites each lot's current price from the price source.
// Lots whose quote cannot be fetched keep their stored price.
func (h *Handler) refreshPrices(ctx context.Context, lots []*models.StockLot) {
	if h.prices == nil {
		return
	}
	for _, lot := range lots {
		quote, err := h.prices.CurrentPrice(ctx, lot.Ticker)
		if err != nil {
			slog.Warn("price refresh failed",
				slog.String("ticker", lot.Ticker),
				slog.String("err", err.Error()),
			)
			continue
		}
		if quote.Price.IsPositive() {
			lot.CurrentPrice = quote.Price
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
