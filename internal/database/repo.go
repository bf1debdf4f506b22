package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stockfolio/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const (
	holdingColumns = `id, stock_symbol, stock_name, purchase_price, quantity, sector, exchange_code, created_at, updated_at`
	quoteColumns   = `symbol, current_price, pe_ratio, latest_earnings, synthetic, last_updated`
)

// Repo is the SQL-backed Store. Queries are written with ? placeholders and
// rebound for the connected driver.
type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
	now func() time.Time
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repo) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	res := []models.Holding{}
	if err := r.db.SelectContext(ctx, &res, `SELECT `+holdingColumns+` FROM holdings ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	return res, nil
}

func (r *Repo) GetHolding(ctx context.Context, id int64) (models.Holding, error) {
	var h models.Holding
	err := r.db.GetContext(ctx, &h, r.db.Rebind(`SELECT `+holdingColumns+` FROM holdings WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Holding{}, ErrNotFound
	}
	if err != nil {
		return models.Holding{}, fmt.Errorf("get holding %d: %w", id, err)
	}
	return h, nil
}

func (r *Repo) CreateHolding(ctx context.Context, in models.NewHolding) (models.Holding, error) {
	return r.insertHolding(ctx, r.db, in)
}

// CreateHoldings inserts every holding in one transaction; on error nothing
// is written.
func (r *Repo) CreateHoldings(ctx context.Context, in []models.NewHolding) ([]models.Holding, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res := make([]models.Holding, 0, len(in))
	for i, n := range in {
		h, err := r.insertHolding(ctx, tx, n)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		res = append(res, h)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	r.log.Debugf("inserted %d holdings", len(res))
	return res, nil
}

func (r *Repo) insertHolding(ctx context.Context, q sqlx.QueryerContext, in models.NewHolding) (models.Holding, error) {
	now := r.now()
	h := models.Holding{
		StockSymbol:   in.StockSymbol,
		StockName:     in.StockName,
		PurchasePrice: in.PurchasePrice,
		Quantity:      in.Quantity,
		Sector:        in.Sector,
		ExchangeCode:  in.ExchangeCode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	stmt := r.db.Rebind(`INSERT INTO holdings (stock_symbol, stock_name, purchase_price, quantity, sector, exchange_code, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := q.QueryRowxContext(ctx, stmt, h.StockSymbol, h.StockName, h.PurchasePrice, h.Quantity, h.Sector, h.ExchangeCode, h.CreatedAt, h.UpdatedAt).Scan(&h.ID); err != nil {
		return models.Holding{}, fmt.Errorf("insert holding: %w", err)
	}
	return h, nil
}

func (r *Repo) UpdateHolding(ctx context.Context, id int64, patch models.HoldingPatch) (models.Holding, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Holding{}, err
	}
	defer tx.Rollback()

	var h models.Holding
	err = tx.GetContext(ctx, &h, tx.Rebind(`SELECT `+holdingColumns+` FROM holdings WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Holding{}, ErrNotFound
	}
	if err != nil {
		return models.Holding{}, fmt.Errorf("load holding %d: %w", id, err)
	}

	patch.Apply(&h)
	h.UpdatedAt = r.now()

	q := tx.Rebind(`UPDATE holdings SET stock_symbol = ?, stock_name = ?, purchase_price = ?, quantity = ?, sector = ?, exchange_code = ?, updated_at = ? WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, q, h.StockSymbol, h.StockName, h.PurchasePrice, h.Quantity, h.Sector, h.ExchangeCode, h.UpdatedAt, id); err != nil {
		return models.Holding{}, fmt.Errorf("update holding %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Holding{}, err
	}
	return h, nil
}

func (r *Repo) DeleteHolding(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM holdings WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete holding %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	res := []models.Quote{}
	if symbols != nil && len(symbols) == 0 {
		return res, nil
	}

	q := `SELECT ` + quoteColumns + ` FROM quotes ORDER BY symbol`
	var args []interface{}
	if symbols != nil {
		var err error
		q, args, err = sqlx.In(`SELECT `+quoteColumns+` FROM quotes WHERE symbol IN (?) ORDER BY symbol`, symbols)
		if err != nil {
			return nil, err
		}
		q = r.db.Rebind(q)
	}
	if err := r.db.SelectContext(ctx, &res, q, args...); err != nil {
		return nil, fmt.Errorf("get quotes: %w", err)
	}
	return res, nil
}

func (r *Repo) UpsertQuote(ctx context.Context, quote models.Quote) (models.Quote, error) {
	if quote.LastUpdated.IsZero() {
		quote.LastUpdated = r.now()
	}
	q := r.db.Rebind(`INSERT INTO quotes (` + quoteColumns + `) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			current_price = excluded.current_price,
			pe_ratio = excluded.pe_ratio,
			latest_earnings = excluded.latest_earnings,
			synthetic = excluded.synthetic,
			last_updated = excluded.last_updated`)
	if _, err := r.db.ExecContext(ctx, q, quote.Symbol, quote.CurrentPrice, quote.PERatio, quote.LatestEarnings, quote.Synthetic, quote.LastUpdated); err != nil {
		return models.Quote{}, fmt.Errorf("upsert quote %s: %w", quote.Symbol, err)
	}
	return quote, nil
}
