package service

import (
	"context"
	"fmt"
	"time"

	"stockfolio/internal/database"
	"stockfolio/internal/marketdata"
	"stockfolio/internal/models"

	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const DefaultBatchSize = 5

// RefreshResult reports what a quote refresh wrote.
type RefreshResult struct {
	UpdatedCount  int            `json:"updated_count"`
	Stocks        []models.Quote `json:"stocks"`
	FailedBatches int            `json:"failed_batches"`
	LastUpdated   time.Time      `json:"last_updated"`
}

// QuoteService pulls quotes from a provider in paced batches and stores them.
type QuoteService struct {
	store     database.Store
	provider  marketdata.Provider
	limiter   ratelimit.Limiter
	batchSize int
	log       *logrus.Logger
}

// NewQuoteService builds a QuoteService. A nil limiter means batches are not
// paced.
func NewQuoteService(s database.Store, p marketdata.Provider, limiter ratelimit.Limiter, batchSize int, log *logrus.Logger) *QuoteService {
	if limiter == nil {
		limiter = ratelimit.NewUnlimited()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &QuoteService{store: s, provider: p, limiter: limiter, batchSize: batchSize, log: log}
}

// Refresh fetches and stores quotes for symbols. A batch the provider fails
// on is logged and skipped; the remaining batches still run. Store failures
// abort the refresh.
func (q *QuoteService) Refresh(ctx context.Context, symbols []string) (RefreshResult, error) {
	res := RefreshResult{Stocks: []models.Quote{}}
	symbols = distinct(symbols)

	for start := 0; start < len(symbols); start += q.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := start + q.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		if err := q.pace(ctx); err != nil {
			return res, err
		}
		quotes, err := q.provider.Fetch(ctx, batch)
		if err != nil {
			q.log.Warnf("quote batch %d-%d failed: %v", start, end, err)
			res.FailedBatches++
			continue
		}
		for _, quote := range quotes {
			stored, err := q.store.UpsertQuote(ctx, quote)
			if err != nil {
				return res, fmt.Errorf("store quote: %w", err)
			}
			res.Stocks = append(res.Stocks, stored)
		}
	}

	res.UpdatedCount = len(res.Stocks)
	res.LastUpdated = time.Now().UTC()
	return res, nil
}

// pace waits for the limiter unless ctx ends first.
func (q *QuoteService) pace(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.limiter.Take()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshHeld refreshes every distinct symbol referenced by a holding.
func (q *QuoteService) RefreshHeld(ctx context.Context) (RefreshResult, error) {
	holdings, err := q.store.ListHoldings(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.StockSymbol)
	}
	return q.Refresh(ctx, symbols)
}

// Start refreshes held symbols every interval until ctx is done.
func (q *QuoteService) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				q.log.Info("quote updater stopping")
				return
			case <-ticker.C:
				res, err := q.RefreshHeld(ctx)
				if err != nil {
					q.log.Warnf("scheduled quote refresh failed: %v", err)
					continue
				}
				q.log.Debugf("scheduled quote refresh updated %d quotes", res.UpdatedCount)
			}
		}
	}()
}

func distinct(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	res := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		res = append(res, s)
	}
	return res
}
