package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkstocker/portfolio-service/internal/database"
	"github.com/mkstocker/portfolio-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory LotStore for handler tests.
type memStore struct {
	lots     []*models.StockLot
	revision int64
	nextID   int
	failAll  bool
}

func newMemStore() *memStore {
	return &memStore{revision: 1}
}

func (m *memStore) GetAllStockLots() ([]*models.StockLot, error) {
	if m.failAll {
		return nil, fmt.Errorf("store unavailable")
	}
	out := make([]*models.StockLot, len(m.lots))
	for i, l := range m.lots {
		copied := *l
		out[i] = &copied
	}
	return out, nil
}

func (m *memStore) GetStockLotByID(id string) (*models.StockLot, error) {
	for _, l := range m.lots {
		if l.ID == id {
			copied := *l
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", database.ErrNotFound, id)
}

func (m *memStore) CreateStockLot(l *models.StockLot) error {
	if m.failAll {
		return fmt.Errorf("store unavailable")
	}
	if l.Order == 0 {
		l.Order = len(m.lots) + 1
	}
	m.nextID++
	l.ID = fmt.Sprintf("lot-%d", m.nextID)
	copied := *l
	m.lots = append(m.lots, &copied)
	m.revision++
	return nil
}

func (m *memStore) UpdateStockLot(id string, upd *models.StockLotUpdate) (*models.StockLot, error) {
	for _, l := range m.lots {
		if l.ID != id {
			continue
		}
		if upd.Quantity != nil {
			l.Quantity = *upd.Quantity
		}
		if upd.BuyPrice != nil {
			l.BuyPrice = *upd.BuyPrice
		}
		if upd.BuyDate != nil {
			l.BuyDate = *upd.BuyDate
		}
		if upd.CurrentPrice != nil {
			l.CurrentPrice = *upd.CurrentPrice
		}
		if upd.Order != nil {
			l.Order = *upd.Order
		}
		m.revision++
		copied := *l
		return &copied, nil
	}
	return nil, fmt.Errorf("%w: %s", database.ErrNotFound, id)
}

func (m *memStore) DeleteStockLot(id string) (*models.StockLot, error) {
	for i, l := range m.lots {
		if l.ID == id {
			m.lots = append(m.lots[:i], m.lots[i+1:]...)
			m.revision++
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", database.ErrNotFound, id)
}

func (m *memStore) Revision() (int64, error) {
	return m.revision, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishLotAdded(_ context.Context, lot *models.StockLot) error {
	p.events = append(p.events, "added:"+lot.ID)
	return nil
}

func (p *recordingPublisher) PublishLotUpdated(_ context.Context, lot *models.StockLot) error {
	p.events = append(p.events, "updated:"+lot.ID)
	return nil
}

func (p *recordingPublisher) PublishLotRemoved(_ context.Context, lot *models.StockLot) error {
	p.events = append(p.events, "removed:"+lot.ID)
	return nil
}

func newTestServer(t *testing.T, store *memStore) (*httptest.Server, *recordingPublisher) {
	t.Helper()
	publisher := &recordingPublisher{}
	handler := NewHandler(store, nil, publisher, "")
	srv := httptest.NewServer(SetupRoutes(handler))
	t.Cleanup(srv.Close)
	return srv, publisher
}

func createLotBody(ticker string, quantity, buyPrice float64, buyDate string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"ticker":    ticker,
		"quantity":  quantity,
		"buy_price": buyPrice,
		"buy_date":  buyDate,
	})
	return body
}

func seedLot(t *testing.T, srv *httptest.Server, ticker string, quantity, buyPrice float64) *models.StockLot {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/stocks", "application/json",
		bytes.NewReader(createLotBody(ticker, quantity, buyPrice, "2024-01-01")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var lot models.StockLot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lot))
	return &lot
}

func doJSON(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestGetStocks(t *testing.T) {
	t.Run("empty store returns empty list and revision", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())

		resp, err := http.Get(srv.URL + "/api/stocks")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body stocksResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Empty(t, body.Stocks)
		assert.Equal(t, int64(1), body.Revision)
	})

	t.Run("revision advances after mutations", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())
		seedLot(t, srv, "SPLG", 10, 50)

		resp, err := http.Get(srv.URL + "/api/stocks")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body stocksResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Stocks, 1)
		assert.Equal(t, int64(2), body.Revision)
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		store := newMemStore()
		store.failAll = true
		srv, _ := newTestServer(t, store)

		resp, err := http.Get(srv.URL + "/api/stocks")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestCreateStock(t *testing.T) {
	t.Run("creates lot and assigns id and order", func(t *testing.T) {
		srv, publisher := newTestServer(t, newMemStore())

		lot := seedLot(t, srv, "SPLG", 10, 50)
		assert.NotEmpty(t, lot.ID)
		assert.Equal(t, "SPLG", lot.Ticker)
		assert.Equal(t, 1, lot.Order)
		assert.Equal(t, []string{"added:" + lot.ID}, publisher.events)

		second := seedLot(t, srv, "QQQM", 5, 170)
		assert.Equal(t, 2, second.Order)
		assert.NotEqual(t, lot.ID, second.ID)
	})

	t.Run("missing required fields return 400", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())

		for name, body := range map[string]map[string]interface{}{
			"no ticker":    {"quantity": 1, "buy_price": 1, "buy_date": "2024-01-01"},
			"no quantity":  {"ticker": "SPLG", "buy_price": 1, "buy_date": "2024-01-01"},
			"no buy_price": {"ticker": "SPLG", "quantity": 1, "buy_date": "2024-01-01"},
			"no buy_date":  {"ticker": "SPLG", "quantity": 1, "buy_price": 1},
		} {
			t.Run(name, func(t *testing.T) {
				raw, _ := json.Marshal(body)
				resp, err := http.Post(srv.URL+"/api/stocks", "application/json", bytes.NewReader(raw))
				require.NoError(t, err)
				defer resp.Body.Close()
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			})
		}
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())

		resp, err := http.Post(srv.URL+"/api/stocks", "application/json", strings.NewReader("{not json"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("caller supplied order is kept", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())

		body, _ := json.Marshal(map[string]interface{}{
			"ticker": "AAPL", "quantity": 1, "buy_price": 100,
			"buy_date": "2024-01-01", "order": 42,
		})
		resp, err := http.Post(srv.URL+"/api/stocks", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()

		var lot models.StockLot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&lot))
		assert.Equal(t, 42, lot.Order)
	})
}

func TestUpdateStock(t *testing.T) {
	t.Run("updates supplied fields only", func(t *testing.T) {
		srv, publisher := newTestServer(t, newMemStore())
		lot := seedLot(t, srv, "SPLG", 10, 50)

		body, _ := json.Marshal(map[string]interface{}{"quantity": 20})
		resp := doJSON(t, http.MethodPut, srv.URL+"/api/stocks/"+lot.ID, body)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var updated models.StockLot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
		assert.True(t, decimal.NewFromInt(20).Equal(updated.Quantity))
		assert.True(t, decimal.NewFromInt(50).Equal(updated.BuyPrice))
		assert.Equal(t, lot.ID, updated.ID)
		assert.Contains(t, publisher.events, "updated:"+lot.ID)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())

		body, _ := json.Marshal(map[string]interface{}{"quantity": 20})
		resp := doJSON(t, http.MethodPut, srv.URL+"/api/stocks/missing", body)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())
		lot := seedLot(t, srv, "SPLG", 10, 50)

		resp := doJSON(t, http.MethodPut, srv.URL+"/api/stocks/"+lot.ID, []byte("{oops"))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteStock(t *testing.T) {
	t.Run("returns the deleted record", func(t *testing.T) {
		store := newMemStore()
		srv, publisher := newTestServer(t, store)
		lot := seedLot(t, srv, "SPLG", 10, 50)

		resp := doJSON(t, http.MethodDelete, srv.URL+"/api/stocks/"+lot.ID, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var deleted models.StockLot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&deleted))
		assert.Equal(t, lot.ID, deleted.ID)
		assert.Equal(t, "SPLG", deleted.Ticker)
		assert.Empty(t, store.lots)
		assert.Contains(t, publisher.events, "removed:"+lot.ID)
	})

	t.Run("unknown id returns 404 and leaves lots unchanged", func(t *testing.T) {
		store := newMemStore()
		srv, _ := newTestServer(t, store)
		seedLot(t, srv, "SPLG", 10, 50)

		resp := doJSON(t, http.MethodDelete, srv.URL+"/api/stocks/missing", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Len(t, store.lots, 1)
	})
}

func TestGetPortfolio(t *testing.T) {
	t.Run("aggregates stored lots", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())
		seedLot(t, srv, "SPLG", 10, 50) // current price defaults to 0 without a feed

		resp, err := http.Get(srv.URL + "/api/portfolio")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var report models.Report
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		assert.Equal(t, "USD", report.Currency)
		require.Len(t, report.TickerSummaries, 1)
		assert.True(t, decimal.NewFromInt(500).Equal(report.TickerSummaries[0].TotalInvestment))
	})

	t.Run("currency conversion applied", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())
		seedLot(t, srv, "SPLG", 10, 50)

		resp, err := http.Get(srv.URL + "/api/portfolio?currency=AED")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var report models.Report
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		assert.True(t, decimal.NewFromFloat(1835).Equal(report.TickerSummaries[0].TotalInvestment),
			"got %s", report.TickerSummaries[0].TotalInvestment)
	})

	t.Run("unknown currency returns 400", func(t *testing.T) {
		srv, _ := newTestServer(t, newMemStore())

		resp, err := http.Get(srv.URL + "/api/portfolio?currency=GBP")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetExchangeRates(t *testing.T) {
	srv, _ := newTestServer(t, newMemStore())

	resp, err := http.Get(srv.URL + "/api/exchange-rate")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, decimal.NewFromFloat(3.67).Equal(body.Rates["AED"]))
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, newMemStore())

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/stocks", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, newMemStore())

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/stocks", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	body := make([]byte, 1)
	n, _ := resp.Body.Read(body)
	assert.Zero(t, n, "preflight response must have no body")
}

func TestRequireAuth(t *testing.T) {
	store := newMemStore()
	handler := NewHandler(store, nil, nil, "secret-token")
	srv := httptest.NewServer(SetupRoutes(handler))
	t.Cleanup(srv.Close)

	t.Run("mutation without token is rejected", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/stocks", "application/json",
			bytes.NewReader(createLotBody("SPLG", 10, 50, "2024-01-01")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, store.lots)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/stocks",
			bytes.NewReader(createLotBody("SPLG", 10, 50, "2024-01-01")))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer wrong")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token is accepted", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/stocks",
			bytes.NewReader(createLotBody("SPLG", 10, 50, "2024-01-01")))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer secret-token")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("reads stay open", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/stocks")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
