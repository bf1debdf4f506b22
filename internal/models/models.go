package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultSector   = "Other"
	DefaultExchange = "NSE"
)

// Holding is a position recorded by the user.
type Holding struct {
	ID            int64           `db:"id" json:"id"`
	StockSymbol   string          `db:"stock_symbol" json:"stock_symbol"`
	StockName     string          `db:"stock_name" json:"stock_name"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	Quantity      int64           `db:"quantity" json:"quantity"`
	Sector        string          `db:"sector" json:"sector"`
	ExchangeCode  string          `db:"exchange_code" json:"exchange_code"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// NewHolding carries the user-supplied fields of a holding before it is stored.
type NewHolding struct {
	StockSymbol   string
	StockName     string
	PurchasePrice decimal.Decimal
	Quantity      int64
	Sector        string
	ExchangeCode  string
}

// HoldingPatch is a partial update; nil fields are left untouched.
type HoldingPatch struct {
	StockSymbol   *string
	StockName     *string
	PurchasePrice *decimal.Decimal
	Quantity      *int64
	Sector        *string
	ExchangeCode  *string
}

func (p HoldingPatch) Apply(h *Holding) {
	if p.StockSymbol != nil {
		h.StockSymbol = *p.StockSymbol
	}
	if p.StockName != nil {
		h.StockName = *p.StockName
	}
	if p.PurchasePrice != nil {
		h.PurchasePrice = *p.PurchasePrice
	}
	if p.Quantity != nil {
		h.Quantity = *p.Quantity
	}
	if p.Sector != nil {
		h.Sector = *p.Sector
	}
	if p.ExchangeCode != nil {
		h.ExchangeCode = *p.ExchangeCode
	}
}

// Quote is the latest market data known for a symbol. Synthetic marks data
// invented by the simulator for a symbol it does not know.
type Quote struct {
	Symbol         string              `db:"symbol" json:"symbol"`
	CurrentPrice   decimal.NullDecimal `db:"current_price" json:"current_price"`
	PERatio        decimal.NullDecimal `db:"pe_ratio" json:"pe_ratio"`
	LatestEarnings decimal.NullDecimal `db:"latest_earnings" json:"latest_earnings"`
	Synthetic      bool                `db:"synthetic" json:"synthetic"`
	LastUpdated    time.Time           `db:"last_updated" json:"last_updated"`
}

// ValuationRow is a holding joined with its quote.
type ValuationRow struct {
	ID                  int64               `json:"id"`
	Particulars         string              `json:"particulars"`
	StockSymbol         string              `json:"stock_symbol"`
	PurchasePrice       decimal.Decimal     `json:"purchase_price"`
	Quantity            int64               `json:"quantity"`
	Investment          decimal.Decimal     `json:"investment"`
	PortfolioPercentage decimal.Decimal     `json:"portfolio_percentage"`
	ExchangeCode        string              `json:"exchange_code"`
	CurrentPrice        decimal.NullDecimal `json:"current_price"`
	PresentValue        decimal.NullDecimal `json:"present_value"`
	GainLoss            decimal.NullDecimal `json:"gain_loss"`
	PERatio             decimal.NullDecimal `json:"pe_ratio"`
	LatestEarnings      decimal.NullDecimal `json:"latest_earnings"`
	Sector              string              `json:"sector"`
}

type SectorSummary struct {
	Sector            string          `json:"sector"`
	TotalInvestment   decimal.Decimal `json:"total_investment"`
	TotalPresentValue decimal.Decimal `json:"total_present_value"`
	GainLoss          decimal.Decimal `json:"gain_loss"`
	HoldingsCount     int             `json:"holdings_count"`
}

type PortfolioSummary struct {
	TotalInvestment         decimal.Decimal `json:"total_investment"`
	TotalPresentValue       decimal.Decimal `json:"total_present_value"`
	TotalGainLoss           decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercentage decimal.Decimal `json:"total_gain_loss_percentage"`
}

// PortfolioView is the payload of the portfolio read endpoint.
type PortfolioView struct {
	Holdings    []ValuationRow   `json:"holdings"`
	Summary     PortfolioSummary `json:"summary"`
	Sectors     []SectorSummary  `json:"sectors"`
	LastUpdated time.Time        `json:"last_updated"`
}
