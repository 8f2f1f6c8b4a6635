package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mkstocker/portfolio-service/internal/models"
)

const lotColumns = `id, ticker, quantity, buy_price, buy_date, current_price, currency, lot_order, created_at, updated_at`

// CreateStockLot inserts a new lot, assigning a fresh id. When the caller
// supplied no display order, it defaults to one greater than the number of
// lots already stored.
func (db *DB) CreateStockLot(l *models.StockLot) error {
	if l.Order == 0 {
		count, err := db.countStockLots()
		if err != nil {
			return err
		}
		l.Order = count + 1
	}

	l.ID = uuid.NewString()
	now := time.Now()

	query := `
		INSERT INTO stock_lots (
			id, ticker, quantity, buy_price, buy_date, current_price,
			currency, lot_order, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := db.conn.Exec(query,
		l.ID, l.Ticker, l.Quantity, l.BuyPrice, l.BuyDate.Time,
		l.CurrentPrice, l.Currency, l.Order, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create stock lot: %w", err)
	}

	l.CreatedAt = now
	l.UpdatedAt = now

	return db.bumpRevision()
}

// GetStockLotByID retrieves one lot by id
func (db *DB) GetStockLotByID(id string) (*models.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots WHERE id = $1`

	l, err := scanStockLot(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock lot: %w", err)
	}
	return l, nil
}

// GetAllStockLots retrieves every lot, ordered for display.
func (db *DB) GetAllStockLots() ([]*models.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots ORDER BY lot_order ASC, created_at ASC`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock lots: %w", err)
	}
	defer rows.Close()

	var lots []*models.StockLot
	for rows.Next() {
		l, err := scanStockLot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock lot: %w", err)
		}
		lots = append(lots, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stock lots: %w", err)
	}

	return lots, nil
}

// UpdateStockLot replaces the supplied fields on the lot with the given id
// and returns the updated record. The id and ticker are immutable.
func (db *DB) UpdateStockLot(id string, upd *models.StockLotUpdate) (*models.StockLot, error) {
	l, err := db.GetStockLotByID(id)
	if err != nil {
		return nil, err
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
	if upd.Currency != nil {
		l.Currency = *upd.Currency
	}
	if upd.Order != nil {
		l.Order = *upd.Order
	}
	l.UpdatedAt = time.Now()

	query := `
		UPDATE stock_lots SET
			quantity = $2, buy_price = $3, buy_date = $4, current_price = $5,
			currency = $6, lot_order = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := db.conn.Exec(query,
		l.ID, l.Quantity, l.BuyPrice, l.BuyDate.Time, l.CurrentPrice,
		l.Currency, l.Order, l.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock lot: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := db.bumpRevision(); err != nil {
		return nil, err
	}
	return l, nil
}

// DeleteStockLot removes a lot and returns its prior content.
func (db *DB) DeleteStockLot(id string) (*models.StockLot, error) {
	l, err := db.GetStockLotByID(id)
	if err != nil {
		return nil, err
	}

	result, err := db.conn.Exec(`DELETE FROM stock_lots WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete stock lot: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := db.bumpRevision(); err != nil {
		return nil, err
	}
	return l, nil
}

// Revision returns the current portfolio revision. The revision advances
// on every mutation so clients can discard out-of-order list responses.
func (db *DB) Revision() (int64, error) {
	var rev int64
	err := db.conn.QueryRow(`SELECT last_value FROM portfolio_revision`).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("failed to read portfolio revision: %w", err)
	}
	return rev, nil
}

func (db *DB) bumpRevision() error {
	if _, err := db.conn.Exec(`SELECT nextval('portfolio_revision')`); err != nil {
		return fmt.Errorf("failed to bump portfolio revision: %w", err)
	}
	return nil
}

func (db *DB) countStockLots() (int, error) {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM stock_lots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stock lots: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStockLot(row rowScanner) (*models.StockLot, error) {
	var l models.StockLot
	var currency sql.NullString

	err := row.Scan(
		&l.ID, &l.Ticker, &l.Quantity, &l.BuyPrice, &l.BuyDate,
		&l.CurrentPrice, &currency, &l.Order, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currency.Valid {
		l.Currency = currency.String
	}

	return &l, nil
}
