// Package marketdata provides quote sources. The only source today is a
// simulator that random-walks prices around a table of NSE reference values.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"stockfolio/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrUnknownSymbol is returned for symbols missing from the reference table
// when fallback generation is disabled.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Provider fetches fresh quotes for a batch of symbols.
type Provider interface {
	Fetch(ctx context.Context, symbols []string) ([]models.Quote, error)
}

type reference struct {
	price    float64
	pe       float64
	earnings float64
}

var references = map[string]reference{
	"RELIANCE":   {2520.75, 12.5, 15000},
	"TCS":        {3350.2, 28.3, 42000},
	"INFY":       {1520.4, 24.1, 28500},
	"HDFCBANK":   {1680.9, 18.7, 35000},
	"ICICIBANK":  {950.5, 15.2, 25000},
	"SBIN":       {720.3, 12.8, 22000},
	"ITC":        {445.6, 22.8, 18000},
	"HINDUNILVR": {2400.8, 45.2, 8500},
	"NESTLEIND":  {2200.5, 55.3, 2800},
	"MARUTI":     {9500.2, 25.4, 12000},
	"TATAMOTORS": {650.8, 18.9, 8500},
	"M_M":        {1850.4, 22.1, 6200},
	"SUNPHARMA":  {1100.6, 28.7, 4500},
	"DRREDDY":    {1250.3, 32.1, 3800},
	"CIPLA":      {1450.7, 26.8, 4200},
	"ONGC":       {180.5, 8.5, 35000},
	"BPCL":       {320.8, 12.3, 8500},
	"IOC":        {140.2, 9.8, 12000},
	"TATASTEEL":  {140.5, 15.2, 18000},
	"HINDALCO":   {520.8, 18.5, 12500},
	"JSWSTEEL":   {920.3, 22.1, 15000},
}

// aliases maps company names users commonly type in place of tickers.
var aliases = map[string]string{
	"INFOSYS":                       "INFY",
	"INFOSYS LTD":                   "INFY",
	"HDFC BANK":                     "HDFCBANK",
	"HDFC BANK LIMITED":             "HDFCBANK",
	"ICICI BANK":                    "ICICIBANK",
	"ICICI BANK LIMITED":            "ICICIBANK",
	"STATE BANK OF INDIA":           "SBIN",
	"ITC LTD":                       "ITC",
	"HINDUSTAN UNILEVER":            "HINDUNILVR",
	"HINDUSTAN UNILEVER LIMITED":    "HINDUNILVR",
	"TATA CONSULTANCY SERVICES":     "TCS",
	"RELIANCE INDUSTRIES":           "RELIANCE",
	"MARUTI SUZUKI":                 "MARUTI",
	"MARUTI SUZUKI INDIA":           "MARUTI",
	"TATA MOTORS":                   "TATAMOTORS",
	"MAHINDRA & MAHINDRA":           "M_M",
	"MAHINDRA AND MAHINDRA":         "M_M",
	"SUN PHARMA":                    "SUNPHARMA",
	"SUN PHARMACEUTICAL":            "SUNPHARMA",
	"SUN PHARMACEUTICAL INDUSTRIES": "SUNPHARMA",
	"DR REDDY":                      "DRREDDY",
	"DR REDDYS LABORATORIES":        "DRREDDY",
	"TATA STEEL":                    "TATASTEEL",
}

// NormalizeSymbol upper-cases and trims a symbol and resolves known aliases.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if alias, ok := aliases[s]; ok {
		return alias
	}
	return s
}

type SimulatorConfig struct {
	// Volatility bounds each step of the walk, as a fraction of the price.
	Volatility float64
	// Fallback invents deterministic reference data for unknown symbols.
	// Quotes produced this way are marked Synthetic.
	Fallback bool
	// Latency delays every fetch, imitating a remote API.
	Latency time.Duration
	Seed    int64
}

// Simulator is a Provider backed by a random walk. Each symbol's walk starts
// at its reference price and stays within half to one and a half times it.
type Simulator struct {
	cfg SimulatorConfig
	log *logrus.Logger

	mu   sync.Mutex
	rng  *rand.Rand
	last map[string]float64
	now  func() time.Time
}

func NewSimulator(cfg SimulatorConfig, log *logrus.Logger) *Simulator {
	if cfg.Volatility <= 0 {
		cfg.Volatility = 0.05
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Simulator{
		cfg:  cfg,
		log:  log,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		last: map[string]float64{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Fetch returns one quote per requested symbol, keyed by the symbol exactly
// as requested. The whole batch fails if any symbol is unknown and fallback
// is off.
func (s *Simulator) Fetch(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if s.cfg.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.Latency):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res := make([]models.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		ref, synthetic, err := s.lookup(symbol)
		if err != nil {
			return nil, err
		}
		price := s.step(symbol, ref.price)
		pe, earnings := s.fundamentals(ref)
		res = append(res, models.Quote{
			Symbol:         symbol,
			CurrentPrice:   decimal.NewNullDecimal(decimal.NewFromFloat(price).Round(2)),
			PERatio:        decimal.NewNullDecimal(decimal.NewFromFloat(pe).Round(2)),
			LatestEarnings: decimal.NewNullDecimal(decimal.NewFromFloat(earnings).Round(2)),
			Synthetic:      synthetic,
			LastUpdated:    now,
		})
	}
	return res, nil
}

func (s *Simulator) lookup(symbol string) (reference, bool, error) {
	if ref, ok := references[NormalizeSymbol(symbol)]; ok {
		return ref, false, nil
	}
	if !s.cfg.Fallback {
		return reference{}, false, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	s.log.Warnf("no reference data for %s, generating synthetic quote", symbol)
	return fallbackReference(symbol), true, nil
}

// step advances the walk for symbol by at most Volatility in either direction.
func (s *Simulator) step(symbol string, base float64) float64 {
	prev, ok := s.last[symbol]
	if !ok {
		prev = base
	}
	change := (s.rng.Float64() - 0.5) * 2 * s.cfg.Volatility
	next := prev * (1 + change)
	next = math.Max(base*0.5, math.Min(base*1.5, next))
	next = math.Round(next*100) / 100
	s.last[symbol] = next
	return next
}

// fundamentals imitates a second data source: the P/E ratio jitters around
// the reference and earnings drift within five percent of it.
func (s *Simulator) fundamentals(ref reference) (float64, float64) {
	pe := ref.pe + (s.rng.Float64()-0.5)*1.5
	earnings := ref.earnings * (0.95 + s.rng.Float64()*0.1)
	return pe, earnings
}

// fallbackReference derives stable pseudo data from the symbol text so the
// same unknown symbol always lands in the same price band.
func fallbackReference(symbol string) reference {
	var h int32
	for _, r := range symbol {
		h = (h << 5) - h + int32(r)
	}
	abs := func(v int32) int64 {
		x := int64(v)
		if x < 0 {
			return -x
		}
		return x
	}
	return reference{
		price:    float64(500 + abs(h)%2000),
		pe:       float64(15 + abs(h>>8)%30),
		earnings: float64(1000 + abs(h>>16)%20000),
	}
}
