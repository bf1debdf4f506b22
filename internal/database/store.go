package database

import (
	"context"
	"errors"

	"stockfolio/internal/models"
)

// ErrNotFound is returned when a referenced holding does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary for holdings and quotes.
//
// GetQuotes returns every stored quote when symbols is nil and nothing when
// it is an empty, non-nil slice.
type Store interface {
	ListHoldings(ctx context.Context) ([]models.Holding, error)
	GetHolding(ctx context.Context, id int64) (models.Holding, error)
	CreateHolding(ctx context.Context, in models.NewHolding) (models.Holding, error)
	// CreateHoldings is all-or-nothing.
	CreateHoldings(ctx context.Context, in []models.NewHolding) ([]models.Holding, error)
	UpdateHolding(ctx context.Context, id int64, patch models.HoldingPatch) (models.Holding, error)
	DeleteHolding(ctx context.Context, id int64) error

	GetQuotes(ctx context.Context, symbols []string) ([]models.Quote, error)
	UpsertQuote(ctx context.Context, q models.Quote) (models.Quote, error)
}
