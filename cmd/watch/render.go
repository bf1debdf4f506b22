package main

import (
	"fmt"
	"strconv"
	"strings"

	"stockfolio/internal/models"
	"stockfolio/internal/scheduler"
	"stockfolio/internal/valuation"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

var (
	colorBorder  = lipgloss.Color("#4D4C57")
	colorPrimary = lipgloss.Color("#6B50FF")
	colorMuted   = lipgloss.Color("#858392")
	colorGain    = lipgloss.Color("#00FFB2")
	colorLoss    = lipgloss.Color("#E94090")
	colorWarn    = lipgloss.Color("#FFD300")

	titleStyle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorLoss)
)

const missing = "-"

type status struct {
	State        scheduler.State
	AutoRefresh  bool
	NextUpdateIn int
	Err          error
}

func renderDashboard(view models.PortfolioView, st status) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("STOCKFOLIO"))
	b.WriteString(mutedStyle.Render("  last updated " + view.LastUpdated.Local().Format("15:04:05")))
	b.WriteString("\n\n")
	b.WriteString(renderSummary(view.Summary))
	b.WriteString("\n\n")
	b.WriteString(renderHoldings(view.Holdings))
	b.WriteString("\n\n")
	b.WriteString(renderSectors(view.Sectors))
	b.WriteString("\n")
	b.WriteString(renderStatus(st))
	b.WriteString("\n")
	return b.String()
}

func renderSummary(s models.PortfolioSummary) string {
	gain := signStyle(s.TotalGainLoss)
	return fmt.Sprintf("Invested %s   Value %s   P&L %s (%s)",
		valuation.FormatCurrency(s.TotalInvestment),
		valuation.FormatCurrency(s.TotalPresentValue),
		gain.Render(valuation.FormatCurrency(s.TotalGainLoss)),
		gain.Render(valuation.FormatPercentage(s.TotalGainLossPercentage)),
	)
}

func renderHoldings(rows []models.ValuationRow) string {
	if len(rows) == 0 {
		return mutedStyle.Render("No holdings yet.")
	}
	const gainCol = 9

	signs := make([]int, len(rows))
	data := make([][]string, 0, len(rows))
	for i, r := range rows {
		if r.GainLoss.Valid {
			signs[i] = r.GainLoss.Decimal.Sign()
		}
		data = append(data, []string{
			r.Particulars,
			r.StockSymbol,
			r.ExchangeCode,
			strconv.FormatInt(r.Quantity, 10),
			valuation.FormatCurrency(r.PurchasePrice),
			valuation.FormatCurrency(r.Investment),
			r.PortfolioPercentage.StringFixed(2) + "%",
			nullCurrency(r.CurrentPrice),
			nullCurrency(r.PresentValue),
			nullCurrency(r.GainLoss),
			nullFixed(r.PERatio),
			nullCurrency(r.LatestEarnings),
			r.Sector,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("Particulars", "Symbol", "Exch", "Qty", "Purchase", "Investment", "Port %", "CMP", "Present Value", "Gain/Loss", "P/E", "Earnings", "Sector").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == gainCol && row >= 0 && row < len(signs) {
				switch {
				case signs[row] > 0:
					return cellStyle.Foreground(colorGain)
				case signs[row] < 0:
					return cellStyle.Foreground(colorLoss)
				}
			}
			return cellStyle
		})
	return t.String()
}

func renderSectors(sectors []models.SectorSummary) string {
	if len(sectors) == 0 {
		return ""
	}
	sorted := append([]models.SectorSummary(nil), sectors...)
	valuation.SortSectorsByInvestment(sorted)

	data := make([][]string, 0, len(sorted))
	for _, s := range sorted {
		data = append(data, []string{
			s.Sector,
			strconv.Itoa(s.HoldingsCount),
			valuation.FormatCurrency(s.TotalInvestment),
			valuation.FormatCurrency(s.TotalPresentValue),
			valuation.FormatCurrency(s.GainLoss),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("Sector", "Holdings", "Investment", "Present Value", "Gain/Loss").
		Rows(data...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func renderStatus(st status) string {
	var parts []string
	if st.AutoRefresh {
		parts = append(parts, fmt.Sprintf("auto-refresh on, next update in %ds", st.NextUpdateIn))
	} else {
		parts = append(parts, "auto-refresh paused")
	}
	parts = append(parts, st.State.String())
	line := mutedStyle.Render(strings.Join(parts, " | ") + "   [r] refresh  [p] pause/resume  [q] quit")
	if st.Err != nil {
		line += "\n" + errorStyle.Render("last refresh failed: "+st.Err.Error())
	}
	return line
}

func signStyle(d decimal.Decimal) lipgloss.Style {
	switch d.Sign() {
	case 1:
		return lipgloss.NewStyle().Foreground(colorGain)
	case -1:
		return lipgloss.NewStyle().Foreground(colorLoss)
	default:
		return lipgloss.NewStyle().Foreground(colorWarn)
	}
}

func nullCurrency(d decimal.NullDecimal) string {
	if !d.Valid {
		return missing
	}
	return valuation.FormatCurrency(d.Decimal)
}

func nullFixed(d decimal.NullDecimal) string {
	if !d.Valid {
		return missing
	}
	return d.Decimal.StringFixed(2)
}
