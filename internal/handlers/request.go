package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"stockfolio/internal/models"

	"github.com/shopspring/decimal"
)

// ValidationError is reported to the caller as a 400 with its message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// flexValue holds a JSON string or number as text. Form-driven clients send
// prices and quantities either way.
type flexValue string

func (f *flexValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexValue(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexValue(n.String())
	return nil
}

type holdingRequest struct {
	StockSymbol   *string    `json:"stock_symbol"`
	StockName     *string    `json:"stock_name"`
	PurchasePrice *flexValue `json:"purchase_price"`
	Quantity      *flexValue `json:"quantity"`
	Sector        *string    `json:"sector"`
	ExchangeCode  *string    `json:"exchange_code"`
}

type updateStocksRequest struct {
	Symbols []string `json:"symbols"`
}

func present(s *string) bool       { return s != nil && strings.TrimSpace(*s) != "" }
func presentFlex(f *flexValue) bool { return f != nil && *f != "" }

func (r holdingRequest) toNewHolding() (models.NewHolding, error) {
	if !present(r.StockSymbol) || !present(r.StockName) || !presentFlex(r.PurchasePrice) || !presentFlex(r.Quantity) {
		return models.NewHolding{}, invalid("Missing required fields")
	}
	price, err := parsePrice(string(*r.PurchasePrice))
	if err != nil {
		return models.NewHolding{}, err
	}
	qty, err := parseQuantity(string(*r.Quantity))
	if err != nil {
		return models.NewHolding{}, err
	}
	h := models.NewHolding{
		StockSymbol:   normalizeSymbol(*r.StockSymbol),
		StockName:     strings.TrimSpace(*r.StockName),
		PurchasePrice: price,
		Quantity:      qty,
		Sector:        models.DefaultSector,
		ExchangeCode:  models.DefaultExchange,
	}
	if present(r.Sector) {
		h.Sector = strings.TrimSpace(*r.Sector)
	}
	if present(r.ExchangeCode) {
		h.ExchangeCode = normalizeExchange(*r.ExchangeCode)
	}
	return h, nil
}

func (r holdingRequest) toPatch() (models.HoldingPatch, error) {
	var p models.HoldingPatch
	if r.StockSymbol != nil {
		if !present(r.StockSymbol) {
			return p, invalid("stock_symbol cannot be empty")
		}
		s := normalizeSymbol(*r.StockSymbol)
		p.StockSymbol = &s
	}
	if r.StockName != nil {
		if !present(r.StockName) {
			return p, invalid("stock_name cannot be empty")
		}
		s := strings.TrimSpace(*r.StockName)
		p.StockName = &s
	}
	if presentFlex(r.PurchasePrice) {
		price, err := parsePrice(string(*r.PurchasePrice))
		if err != nil {
			return p, err
		}
		p.PurchasePrice = &price
	}
	if presentFlex(r.Quantity) {
		qty, err := parseQuantity(string(*r.Quantity))
		if err != nil {
			return p, err
		}
		p.Quantity = &qty
	}
	if r.Sector != nil {
		s := strings.TrimSpace(*r.Sector)
		if s == "" {
			s = models.DefaultSector
		}
		p.Sector = &s
	}
	if r.ExchangeCode != nil {
		s := normalizeExchange(*r.ExchangeCode)
		if s == "" {
			s = models.DefaultExchange
		}
		p.ExchangeCode = &s
	}
	return p, nil
}

// pricePlaces matches the NUMERIC(18, 4) holdings column.
const pricePlaces = 4

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, invalid("purchase_price must be a positive number")
	}
	if !d.Equal(d.Round(pricePlaces)) {
		return decimal.Decimal{}, invalid("purchase_price allows at most %d decimal places", pricePlaces)
	}
	return d, nil
}

func parseQuantity(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() || !d.Equal(d.Truncate(0)) || !d.LessThan(decimal.NewFromInt(1<<53)) {
		return 0, invalid("quantity must be a positive whole number")
	}
	return d.IntPart(), nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeExchange(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
