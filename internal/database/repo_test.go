package database

import (
	"context"
	"os"
	"testing"
	"time"

	"stockfolio/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := New(db, logrus.New())
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func setupPostgres(t *testing.T) *Repo {
	t.Helper()
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL is not set; skipping integration tests")
	}
	db, err := Open(DriverPostgres, url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := New(db, logrus.New())
	require.NoError(t, r.Migrate(context.Background()))
	// the integration database is disposable
	_, err = db.Exec(`DELETE FROM holdings`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM quotes`)
	require.NoError(t, err)
	return r
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
	testCreateHoldings(t, NewMemoryStore())
}

func TestRepo_SQLite(t *testing.T) {
	testStore(t, newSQLiteRepo(t))
	testCreateHoldings(t, newSQLiteRepo(t))
}

func TestRepo_Postgres(t *testing.T) {
	testStore(t, setupPostgres(t))
	testCreateHoldings(t, setupPostgres(t))
}

func testCreateHoldings(t *testing.T, s Store) {
	ctx := context.Background()
	row := func(symbol string, qty int64) models.NewHolding {
		return models.NewHolding{
			StockSymbol:   symbol,
			StockName:     symbol + " Ltd",
			PurchasePrice: decimal.RequireFromString("101.25"),
			Quantity:      qty,
			Sector:        "Other",
			ExchangeCode:  "NSE",
		}
	}

	// the second row violates quantity > 0, so the first must not survive
	_, err := s.CreateHoldings(ctx, []models.NewHolding{row("AAA", 1), row("BBB", 0), row("CCC", 2)})
	require.Error(t, err)
	holdings, err := s.ListHoldings(ctx)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	created, err := s.CreateHoldings(ctx, []models.NewHolding{row("AAA", 1), row("CCC", 2)})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEqual(t, created[0].ID, created[1].ID)

	holdings, err = s.ListHoldings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "AAA", holdings[0].StockSymbol)
	assert.Equal(t, int64(2), holdings[1].Quantity)
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	holdings, err := s.ListHoldings(ctx)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	created, err := s.CreateHolding(ctx, models.NewHolding{
		StockSymbol:   "RELIANCE",
		StockName:     "Reliance Industries Ltd",
		PurchasePrice: decimal.RequireFromString("2450.50"),
		Quantity:      10,
		Sector:        "Energy",
		ExchangeCode:  "NSE",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)

	second, err := s.CreateHolding(ctx, models.NewHolding{
		StockSymbol:   "TCS",
		StockName:     "Tata Consultancy Services",
		PurchasePrice: decimal.RequireFromString("3200"),
		Quantity:      5,
		Sector:        "Technology",
		ExchangeCode:  "BSE",
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, second.ID)

	got, err := s.GetHolding(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "RELIANCE", got.StockSymbol)
	assert.True(t, got.PurchasePrice.Equal(decimal.RequireFromString("2450.5")), "price %s", got.PurchasePrice)
	assert.Equal(t, int64(10), got.Quantity)

	_, err = s.GetHolding(ctx, 99999)
	assert.ErrorIs(t, err, ErrNotFound)

	qty := int64(12)
	sector := "Oil & Gas"
	updated, err := s.UpdateHolding(ctx, created.ID, models.HoldingPatch{Quantity: &qty, Sector: &sector})
	require.NoError(t, err)
	assert.Equal(t, int64(12), updated.Quantity)
	assert.Equal(t, "Oil & Gas", updated.Sector)
	assert.Equal(t, "Reliance Industries Ltd", updated.StockName)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	_, err = s.UpdateHolding(ctx, 99999, models.HoldingPatch{Quantity: &qty})
	assert.ErrorIs(t, err, ErrNotFound)

	holdings, err = s.ListHoldings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, created.ID, holdings[0].ID)
	assert.Equal(t, int64(12), holdings[0].Quantity)

	require.NoError(t, s.DeleteHolding(ctx, second.ID))
	assert.ErrorIs(t, s.DeleteHolding(ctx, second.ID), ErrNotFound)
	holdings, err = s.ListHoldings(ctx)
	require.NoError(t, err)
	assert.Len(t, holdings, 1)

	// quotes
	quotes, err := s.GetQuotes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)

	_, err = s.UpsertQuote(ctx, models.Quote{
		Symbol:       "RELIANCE",
		CurrentPrice: decimal.NewNullDecimal(decimal.RequireFromString("2520.75")),
		PERatio:      decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
	})
	require.NoError(t, err)
	_, err = s.UpsertQuote(ctx, models.Quote{Symbol: "NEWCO", Synthetic: true})
	require.NoError(t, err)

	quotes, err = s.GetQuotes(ctx, []string{"RELIANCE"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.True(t, quotes[0].CurrentPrice.Valid)
	assert.True(t, quotes[0].CurrentPrice.Decimal.Equal(decimal.RequireFromString("2520.75")))
	assert.False(t, quotes[0].LatestEarnings.Valid)
	assert.False(t, quotes[0].LastUpdated.IsZero())

	_, err = s.UpsertQuote(ctx, models.Quote{
		Symbol:       "RELIANCE",
		CurrentPrice: decimal.NewNullDecimal(decimal.RequireFromString("2600")),
	})
	require.NoError(t, err)

	quotes, err = s.GetQuotes(ctx, nil)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "NEWCO", quotes[0].Symbol)
	assert.True(t, quotes[0].Synthetic)
	assert.False(t, quotes[0].CurrentPrice.Valid)
	assert.True(t, quotes[1].CurrentPrice.Decimal.Equal(decimal.NewFromInt(2600)))
	assert.False(t, quotes[1].PERatio.Valid)

	quotes, err = s.GetQuotes(ctx, []string{})
	require.NoError(t, err)
	assert.Empty(t, quotes)

	quotes, err = s.GetQuotes(ctx, []string{"MISSING", "NEWCO"})
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	seeded, err := SeedDemo(ctx, s)
	require.NoError(t, err)
	assert.True(t, seeded)

	holdings, err := s.ListHoldings(ctx)
	require.NoError(t, err)
	assert.Len(t, holdings, len(DemoHoldings()))

	quotes, err := s.GetQuotes(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, quotes, len(DemoQuotes(time.Now())))

	seeded, err = SeedDemo(ctx, s)
	require.NoError(t, err)
	assert.False(t, seeded)
}
