package database

import (
	"context"
	"fmt"
	"time"

	"stockfolio/internal/models"

	"github.com/shopspring/decimal"
)

// DemoHoldings is the starter portfolio shown on a fresh install.
func DemoHoldings() []models.NewHolding {
	return []models.NewHolding{
		{StockSymbol: "RELIANCE", StockName: "Reliance Industries Ltd", PurchasePrice: decimal.RequireFromString("2450.00"), Quantity: 10, Sector: "Energy", ExchangeCode: "NSE"},
		{StockSymbol: "TCS", StockName: "Tata Consultancy Services", PurchasePrice: decimal.RequireFromString("3200.00"), Quantity: 5, Sector: "Technology", ExchangeCode: "NSE"},
		{StockSymbol: "INFY", StockName: "Infosys Ltd", PurchasePrice: decimal.RequireFromString("1450.00"), Quantity: 8, Sector: "Technology", ExchangeCode: "NSE"},
		{StockSymbol: "HDFCBANK", StockName: "HDFC Bank Ltd", PurchasePrice: decimal.RequireFromString("1650.00"), Quantity: 12, Sector: "Financials", ExchangeCode: "NSE"},
		{StockSymbol: "ITC", StockName: "ITC Ltd", PurchasePrice: decimal.RequireFromString("420.00"), Quantity: 25, Sector: "Consumer Goods", ExchangeCode: "NSE"},
	}
}

// DemoQuotes are the last known quotes for DemoHoldings.
func DemoQuotes(now time.Time) []models.Quote {
	q := func(symbol, price, pe, earnings string) models.Quote {
		return models.Quote{
			Symbol:         symbol,
			CurrentPrice:   decimal.NewNullDecimal(decimal.RequireFromString(price)),
			PERatio:        decimal.NewNullDecimal(decimal.RequireFromString(pe)),
			LatestEarnings: decimal.NewNullDecimal(decimal.RequireFromString(earnings)),
			LastUpdated:    now,
		}
	}
	return []models.Quote{
		q("RELIANCE", "2520.75", "12.5", "15000"),
		q("TCS", "3350.20", "28.3", "42000"),
		q("INFY", "1520.40", "24.1", "28500"),
		q("HDFCBANK", "1680.90", "18.7", "35000"),
		q("ITC", "445.60", "22.8", "18000"),
	}
}

// SeedDemo fills an empty store with the demo portfolio. It reports whether
// anything was written.
func SeedDemo(ctx context.Context, s Store) (bool, error) {
	existing, err := s.ListHoldings(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	if _, err := s.CreateHoldings(ctx, DemoHoldings()); err != nil {
		return false, fmt.Errorf("seed holdings: %w", err)
	}
	for _, q := range DemoQuotes(time.Now().UTC()) {
		if _, err := s.UpsertQuote(ctx, q); err != nil {
			return false, fmt.Errorf("seed quote %s: %w", q.Symbol, err)
		}
	}
	return true, nil
}
