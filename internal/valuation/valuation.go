// Package valuation turns holdings and a quote snapshot into valuation rows,
// sector rollups and a portfolio summary. Everything here is pure: callers
// hand in data and get derived values back.
package valuation

import (
	"sort"
	"time"

	"stockfolio/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TotalInvestment sums purchase price times quantity over all holdings.
func TotalInvestment(holdings []models.Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(investment(h))
	}
	return total
}

func investment(h models.Holding) decimal.Decimal {
	return h.PurchasePrice.Mul(decimal.NewFromInt(h.Quantity))
}

// ComputeRow values a single holding. A nil quote, or a quote without a
// price, leaves the price-side fields null.
func ComputeRow(h models.Holding, q *models.Quote, totalInvestment decimal.Decimal) models.ValuationRow {
	inv := investment(h)
	row := models.ValuationRow{
		ID:                  h.ID,
		Particulars:         h.StockName,
		StockSymbol:         h.StockSymbol,
		PurchasePrice:       h.PurchasePrice,
		Quantity:            h.Quantity,
		Investment:          inv,
		PortfolioPercentage: decimal.Zero,
		ExchangeCode:        h.ExchangeCode,
		Sector:              h.Sector,
	}
	if totalInvestment.IsPositive() {
		row.PortfolioPercentage = inv.Div(totalInvestment).Mul(hundred)
	}
	if q == nil {
		return row
	}

	row.PERatio = q.PERatio
	row.LatestEarnings = q.LatestEarnings
	if q.CurrentPrice.Valid {
		pv := q.CurrentPrice.Decimal.Mul(decimal.NewFromInt(h.Quantity))
		row.CurrentPrice = q.CurrentPrice
		row.PresentValue = decimal.NewNullDecimal(pv)
		row.GainLoss = decimal.NewNullDecimal(pv.Sub(inv))
	}
	return row
}

// presentValueOrInvestment keeps unpriced rows from distorting totals.
func presentValueOrInvestment(r models.ValuationRow) decimal.Decimal {
	if r.PresentValue.Valid {
		return r.PresentValue.Decimal
	}
	return r.Investment
}

// AggregateSectors groups rows by their literal sector label, in the order
// sectors are first seen.
func AggregateSectors(rows []models.ValuationRow) []models.SectorSummary {
	index := map[string]int{}
	res := []models.SectorSummary{}
	for _, r := range rows {
		i, ok := index[r.Sector]
		if !ok {
			i = len(res)
			index[r.Sector] = i
			res = append(res, models.SectorSummary{
				Sector:            r.Sector,
				TotalInvestment:   decimal.Zero,
				TotalPresentValue: decimal.Zero,
				GainLoss:          decimal.Zero,
			})
		}
		s := &res[i]
		s.TotalInvestment = s.TotalInvestment.Add(r.Investment)
		s.TotalPresentValue = s.TotalPresentValue.Add(presentValueOrInvestment(r))
		if r.GainLoss.Valid {
			s.GainLoss = s.GainLoss.Add(r.GainLoss.Decimal)
		}
		s.HoldingsCount++
	}
	return res
}

func ComputeSummary(rows []models.ValuationRow) models.PortfolioSummary {
	inv := decimal.Zero
	pv := decimal.Zero
	for _, r := range rows {
		inv = inv.Add(r.Investment)
		pv = pv.Add(presentValueOrInvestment(r))
	}
	gl := pv.Sub(inv)
	pct := decimal.Zero
	if inv.IsPositive() {
		pct = gl.Div(inv).Mul(hundred)
	}
	return models.PortfolioSummary{
		TotalInvestment:         inv,
		TotalPresentValue:       pv,
		TotalGainLoss:           gl,
		TotalGainLossPercentage: pct,
	}
}

// BuildView joins holdings with quotes by exact symbol and computes the full
// portfolio view. It is recomputed from scratch on every call.
func BuildView(holdings []models.Holding, quotes []models.Quote, now time.Time) models.PortfolioView {
	bySymbol := make(map[string]*models.Quote, len(quotes))
	for i := range quotes {
		bySymbol[quotes[i].Symbol] = &quotes[i]
	}

	total := TotalInvestment(holdings)
	rows := make([]models.ValuationRow, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, ComputeRow(h, bySymbol[h.StockSymbol], total))
	}

	return models.PortfolioView{
		Holdings:    rows,
		Summary:     ComputeSummary(rows),
		Sectors:     AggregateSectors(rows),
		LastUpdated: now,
	}
}

// SortSectorsByInvestment orders sectors by total investment, largest first.
func SortSectorsByInvestment(sectors []models.SectorSummary) {
	sort.SliceStable(sectors, func(i, j int) bool {
		return sectors[i].TotalInvestment.GreaterThan(sectors[j].TotalInvestment)
	})
}

// Symbols returns the distinct symbols referenced by rows, in first-seen order.
func Symbols(rows []models.ValuationRow) []string {
	seen := map[string]struct{}{}
	res := []string{}
	for _, r := range rows {
		if _, ok := seen[r.StockSymbol]; ok {
			continue
		}
		seen[r.StockSymbol] = struct{}{}
		res = append(res, r.StockSymbol)
	}
	return res
}
