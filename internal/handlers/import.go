package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"stockfolio/internal/models"
)

var (
	nameColumns     = []string{"stock name", "stock_name", "name"}
	symbolColumns   = []string{"stock_symbol", "symbol", "ticker"}
	priceColumns    = []string{"purchase price", "purchase_price", "price"}
	quantityColumns = []string{"quantity", "qty"}
	exchangeColumns = []string{"exchange", "exchange_code", "nse/bse"}
	sectorColumns   = []string{"sector"}
)

// ParseHoldingsCSV reads holdings from a CSV export with a header row. Header
// names are matched case-insensitively against the spellings brokers and
// spreadsheets commonly use. Rows without a positive price and whole
// quantity are skipped and counted.
func ParseHoldingsCSV(r io.Reader) ([]models.NewHolding, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, 0, errors.New("file must have at least a header row and one data row")
	}

	index := map[string]int{}
	for i, h := range records[0] {
		key := strings.ToLower(strings.Trim(strings.TrimSpace(h), `"`))
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}

	var (
		holdings []models.NewHolding
		skipped  int
	)
	for n, record := range records[1:] {
		field := func(names []string) string {
			for _, name := range names {
				if i, ok := index[name]; ok && i < len(record) {
					if v := strings.TrimSpace(record[i]); v != "" {
						return v
					}
				}
			}
			return ""
		}

		symbol := field(symbolColumns)
		name := field(nameColumns)
		if name == "" {
			name = symbol
		}
		if name == "" {
			name = fmt.Sprintf("Stock %d", n+1)
		}
		if symbol == "" {
			symbol = strings.Join(strings.Fields(name), "")
		}

		price, err := parsePrice(field(priceColumns))
		if err != nil {
			skipped++
			continue
		}
		qty, err := parseQuantity(field(quantityColumns))
		if err != nil {
			skipped++
			continue
		}

		h := models.NewHolding{
			StockSymbol:   normalizeSymbol(symbol),
			StockName:     name,
			PurchasePrice: price,
			Quantity:      qty,
			Sector:        models.DefaultSector,
			ExchangeCode:  models.DefaultExchange,
		}
		if v := field(sectorColumns); v != "" {
			h.Sector = v
		}
		if v := field(exchangeColumns); v != "" {
			h.ExchangeCode = normalizeExchange(v)
		}
		holdings = append(holdings, h)
	}
	return holdings, skipped, nil
}
