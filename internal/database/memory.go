package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stockfolio/internal/models"
)

// MemoryStore keeps holdings and quotes in process memory. It backs local
// runs and tests; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	holdings []models.Holding
	quotes   map[string]models.Quote
	nextID   int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotes: map[string]models.Quote{},
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) ListHoldings(_ context.Context) ([]models.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.Holding, len(m.holdings))
	copy(res, m.holdings)
	return res, nil
}

func (m *MemoryStore) GetHolding(_ context.Context, id int64) (models.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(id); i >= 0 {
		return m.holdings[i], nil
	}
	return models.Holding{}, ErrNotFound
}

func (m *MemoryStore) CreateHolding(_ context.Context, in models.NewHolding) (models.Holding, error) {
	if err := checkNewHolding(in); err != nil {
		return models.Holding{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(in), nil
}

func (m *MemoryStore) CreateHoldings(_ context.Context, in []models.NewHolding) ([]models.Holding, error) {
	for i, n := range in {
		if err := checkNewHolding(n); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]models.Holding, 0, len(in))
	for _, n := range in {
		res = append(res, m.insert(n))
	}
	return res, nil
}

// insert requires m.mu held.
func (m *MemoryStore) insert(in models.NewHolding) models.Holding {
	now := m.now()
	h := models.Holding{
		ID:            m.nextID,
		StockSymbol:   in.StockSymbol,
		StockName:     in.StockName,
		PurchasePrice: in.PurchasePrice,
		Quantity:      in.Quantity,
		Sector:        in.Sector,
		ExchangeCode:  in.ExchangeCode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.nextID++
	m.holdings = append(m.holdings, h)
	return h
}

// checkNewHolding mirrors the CHECK constraints of the SQL schema.
func checkNewHolding(in models.NewHolding) error {
	if !in.PurchasePrice.IsPositive() {
		return fmt.Errorf("insert holding %s: purchase_price must be positive", in.StockSymbol)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("insert holding %s: quantity must be positive", in.StockSymbol)
	}
	return nil
}

func (m *MemoryStore) UpdateHolding(_ context.Context, id int64, patch models.HoldingPatch) (models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return models.Holding{}, ErrNotFound
	}
	h := m.holdings[i]
	patch.Apply(&h)
	h.UpdatedAt = m.now()
	m.holdings[i] = h
	return h, nil
}

func (m *MemoryStore) DeleteHolding(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	m.holdings = append(m.holdings[:i], m.holdings[i+1:]...)
	return nil
}

func (m *MemoryStore) GetQuotes(_ context.Context, symbols []string) ([]models.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []models.Quote{}
	if symbols == nil {
		for _, q := range m.quotes {
			res = append(res, q)
		}
	} else {
		seen := map[string]bool{}
		for _, s := range symbols {
			if q, ok := m.quotes[s]; ok && !seen[s] {
				seen[s] = true
				res = append(res, q)
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Symbol < res[j].Symbol })
	return res, nil
}

func (m *MemoryStore) UpsertQuote(_ context.Context, q models.Quote) (models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.LastUpdated.IsZero() {
		q.LastUpdated = m.now()
	}
	m.quotes[q.Symbol] = q
	return q, nil
}

func (m *MemoryStore) indexOf(id int64) int {
	for i, h := range m.holdings {
		if h.ID == id {
			return i
		}
	}
	return -1
}
